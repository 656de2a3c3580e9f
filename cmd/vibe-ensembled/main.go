// Command vibe-ensembled is the coordination server for an ensemble of
// autonomous coding agents: the JSON-RPC/MCP protocol engine, the
// orchestration/workflow engine, the storage tier, and the access/audit
// control plane, all wired behind one HTTP listener (spec §4, §6).
//
// Grounded on cmd/cliaimonitor/main.go's composition root: flag parsing,
// single-instance PID lock, pre-flight port check, start-in-goroutine +
// poll-health-check-before-declaring-ready, PID file written only after
// confirmed bind, and a shutdown select spanning OS signal, API-triggered
// shutdown, and server error.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/config"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/httpapi"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/instance"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/mcpserver"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/messaging"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/nats"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/network"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/notifications"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/notifications/external"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/orchestration"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/service"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/storage"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/workflow"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	configPath := flag.String("config", "configs/config.yaml", "Coordination server config file")
	dataDir := flag.String("data", "data", "Directory for the database and PID file")

	status := flag.Bool("status", false, "Show status of running instance")
	stop := flag.Bool("stop", false, "Stop running instance gracefully")
	forceStop := flag.Bool("force-stop", false, "Force kill running instance")
	flag.Parse()

	basePath, err := getBasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to determine base path: %v\n", err)
		os.Exit(1)
	}
	if !filepath.IsAbs(*configPath) {
		*configPath = filepath.Join(basePath, *configPath)
	}
	if !filepath.IsAbs(*dataDir) {
		*dataDir = filepath.Join(basePath, *dataDir)
	}
	pidFilePath := filepath.Join(*dataDir, "vibe-ensembled.pid")

	if *status {
		showInstanceStatus(pidFilePath, *port)
		os.Exit(0)
	}
	if *stop || *forceStop {
		stopInstance(pidFilePath, *forceStop)
		os.Exit(0)
	}

	instanceMgr := instance.NewManager(pidFilePath, filepath.Join(*dataDir, "state.json"), *port)
	existingInfo, err := instanceMgr.CheckExistingInstance()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check for existing instance: %v\n", err)
		os.Exit(1)
	}
	if existingInfo != nil && existingInfo.IsRunning {
		resolver := instance.NewConflictResolver(instanceMgr, instance.IsInteractive())
		if err := resolver.Resolve(existingInfo); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve instance conflict: %v\n", err)
			os.Exit(1)
		}
		*port = instanceMgr.GetPort()
	}

	if err := instanceMgr.AcquireLock(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to acquire instance lock: %v\n", err)
		os.Exit(1)
	}
	defer instanceMgr.ReleaseLock()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if cfg.Storage.URL != ":memory:" && !filepath.IsAbs(cfg.Storage.URL) {
		cfg.Storage.URL = filepath.Join(*dataDir, cfg.Storage.URL)
	}
	cfg.HTTP.ListenAddr = fmt.Sprintf(":%d", *port)

	term := notifications.NewTerminalNotifier()
	defer term.RestoreTerminalTitle()
	term.SetOriginalTitle(fmt.Sprintf("vibe-ensembled :%d", *port))

	printBanner()

	db, err := storage.Open(storage.Config{
		URL:              cfg.Storage.URL,
		MaxConnections:   cfg.Storage.MaxConnections,
		MigrateOnStartup: cfg.Storage.MigrateOnStartup,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Printf("  Storage opened at %s\n", cfg.Storage.URL)

	hasher := security.NewPasswordHasher()
	jwtManager := security.NewJWTManager([]byte(cfg.Security.JWTSecret), cfg.Security.JWTIssuer)
	csrfStore := security.NewCSRFStore()
	auditor := security.NewAuditor(storage.NewAuditRepository(db))

	if router := buildNotificationRouter(cfg.Notifications); router != nil {
		auditor.SetSink(router)
		fmt.Printf("  Notification channels wired: %d\n", len(router.GetChannels()))
	}

	users := service.NewUserService(storage.NewUserRepository(db), hasher, auditor)
	tokens := service.NewTokenService(storage.NewTokenRepository(db), hasher, auditor)
	agents := service.NewAgentService(storage.NewAgentRepository(db), auditor, cfg.Coordination.AgentIdleBound)
	issues := service.NewIssueService(storage.NewIssueRepository(db), agents, auditor)
	knowledge := service.NewKnowledgeService(storage.NewKnowledgeRepository(db), auditor)
	messages := service.NewMessageService(storage.NewMessageRepository(db), auditor)

	bus := messaging.NewBus()
	coordinator := messaging.NewCoordinator(messages, bus)

	network.NewMetrics(prometheus.DefaultRegisterer)
	compressor := network.NewCompressor(cfg.Network.CompressionLevel)
	pool := network.NewPool(network.PoolConfig{
		MaxPerHost:  cfg.Network.PoolMaxPerHost,
		MaxAge:      cfg.Network.PoolMaxAge,
		MaxIdle:     cfg.Network.PoolMaxIdle,
		SweepPeriod: cfg.Network.PoolSweepPeriod,
	})
	heartbeater := network.NewHeartbeater(network.HeartbeatConfig{
		PingInterval: cfg.Network.HeartbeatPingInterval,
		IdleBound:    cfg.Network.HeartbeatIdleBound,
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go pool.RunSweeper(bgCtx)
	hbStop := make(chan struct{})
	go heartbeater.Run(hbStop)

	var embeddedNATS *nats.EmbeddedServer
	natsURL := cfg.Coordination.NATSURL
	if cfg.Coordination.NATSEmbedded {
		embeddedNATS, err = nats.NewEmbeddedServer(nats.EmbeddedServerConfig{
			Port:      cfg.Coordination.NATSEmbeddedPort,
			JetStream: cfg.Coordination.NATSJetStream,
			DataDir:   cfg.Coordination.NATSDataDir,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to configure embedded NATS server: %v\n", err)
			os.Exit(1)
		}
		if err := embeddedNATS.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start embedded NATS server: %v\n", err)
			os.Exit(1)
		}
		defer embeddedNATS.Shutdown()
		natsURL = embeddedNATS.URL()
		fmt.Printf("  Embedded NATS broker listening at %s\n", natsURL)
	}
	if natsURL != "" {
		transport, err := messaging.Dial(natsURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to NATS at %s: %v\n", natsURL, err)
		} else {
			transport.SetCompressor(compressor)
			coordinator.AttachTransport(transport)
			defer transport.Close()
			fmt.Printf("  Messaging transport connected to %s\n", natsURL)
		}
	}

	executor := orchestration.NewExecutor(cfg.Coordination.ClaudeBinaryPath)
	driver := workflow.NewDriver(executor)

	const serverVersion = "0.1.0"
	mcpServerURL := fmt.Sprintf("http://localhost:%d/mcp", *port)
	mcpServer := mcpserver.NewServer(agents, issues, knowledge, serverVersion)

	fmt.Println("  Components initialized")

	fmt.Printf("  Checking port %d availability...\n", *port)
	if !instance.IsPortAvailable(*port) {
		procPID, _ := instance.GetProcessUsingPort(*port)
		fmt.Fprintf(os.Stderr, "\n  ERROR: Port %d is in use by process %d\n", *port, procPID)
		fmt.Fprintf(os.Stderr, "  Try: Use a different port with -port 8080\n")
		os.Exit(1)
	}
	fmt.Println("  Port available")

	api := httpapi.NewAPI(httpapi.Services{
		Users:     users,
		Tokens:    tokens,
		Agents:    agents,
		Issues:    issues,
		Knowledge: knowledge,
		Messages:  coordinator,
		Workflows: driver,
		MCP:       mcpServer,
	}, httpapi.Security{
		JWT:               jwtManager,
		Passwords:         hasher,
		CSRF:              csrfStore,
		Auditor:           auditor,
		RateLimitRequests: cfg.Network.RateLimitRequests,
		RateLimitWindow:   cfg.Network.RateLimitWindow,
		RateLimitBurst:    cfg.Network.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: api.Router(),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.ListenAndServe()
	}()

	serverStarted := false
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		select {
		case err := <-serverErr:
			fmt.Fprintf(os.Stderr, "Server failed to start: %v\n", err)
			os.Exit(1)
		default:
		}
		if instance.HealthCheck(*port) == nil {
			serverStarted = true
			break
		}
	}
	if !serverStarted {
		fmt.Fprintf(os.Stderr, "Server failed to become ready within timeout\n")
		os.Exit(1)
	}

	fmt.Printf("  Coordination server ready at http://localhost:%d\n", *port)
	fmt.Printf("  MCP agents connect to %s\n", mcpServerURL)
	fmt.Println()

	if err := instanceMgr.WritePIDFile(os.Getpid(), *port, basePath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to write PID file: %v\n", err)
	}

	livenessCtx, livenessCancel := context.WithCancel(context.Background())
	defer livenessCancel()
	go runLivenessSweep(livenessCtx, mcpServer, cfg.Coordination.LivenessSweepInterval)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		}
	case <-shutdown:
		fmt.Println()
		fmt.Println("Shutting down (signal received)...")
	case <-api.ShutdownChan:
		fmt.Println()
		fmt.Println("Shutting down (API request)...")
	}
	term.FlashTerminal("shutting down")

	livenessCancel()
	bgCancel()
	close(hbStop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	fmt.Println("Removing PID file...")
	instanceMgr.RemovePIDFile()

	fmt.Println("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}

	fmt.Println("Goodbye!")
}

// runLivenessSweep periodically demotes agents whose heartbeat has
// exceeded the configured idle bound (spec §4.1, §4.5).
func runLivenessSweep(ctx context.Context, mcpServer *mcpserver.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := mcpServer.CleanupStale(); err != nil {
				fmt.Fprintf(os.Stderr, "liveness sweep: %v\n", err)
			} else if n > 0 {
				fmt.Printf("liveness sweep: demoted %d idle agent(s)\n", n)
			}
		}
	}
}

// buildNotificationRouter wires the configured external channels behind
// a notifications.Router, or returns nil when none are configured.
func buildNotificationRouter(cfg config.NotificationsConfig) *notifications.Router {
	minSeverity := domain.AuditSeverity(cfg.MinSeverity)
	var channels []notifications.Channel

	if cfg.Slack != nil && cfg.Slack.WebhookURL != "" {
		channels = append(channels, external.NewSlackNotifier(external.SlackConfig{
			WebhookURL:  cfg.Slack.WebhookURL,
			Channel:     cfg.Slack.Channel,
			MinSeverity: minSeverity,
		}))
	}
	if cfg.Discord != nil && cfg.Discord.WebhookURL != "" {
		channels = append(channels, external.NewDiscordNotifier(external.DiscordConfig{
			WebhookURL:  cfg.Discord.WebhookURL,
			MinSeverity: minSeverity,
		}))
	}
	if cfg.Email != nil && cfg.Email.SMTPHost != "" {
		channels = append(channels, external.NewEmailNotifier(external.EmailConfig{
			SMTPHost:    cfg.Email.SMTPHost,
			SMTPPort:    cfg.Email.SMTPPort,
			Username:    cfg.Email.Username,
			Password:    cfg.Email.Password,
			From:        cfg.Email.From,
			To:          cfg.Email.To,
			MinSeverity: minSeverity,
		}))
	}

	if len(channels) == 0 {
		return nil
	}
	return notifications.NewRouter(channels)
}

// getBasePath returns the directory containing the executable, or the
// current working directory if running via `go run`.
func getBasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return os.Getwd()
	}
	dir := filepath.Dir(exe)
	if filepath.Base(dir) == "exe" || filepath.Base(filepath.Dir(dir)) == "go-build" {
		return os.Getwd()
	}
	if filepath.Base(dir) == "bin" {
		return filepath.Dir(dir), nil
	}
	return dir, nil
}

func showInstanceStatus(pidFilePath string, port int) {
	mgr := instance.NewManager(pidFilePath, "", port)
	info, err := mgr.CheckExistingInstance()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if info == nil {
		fmt.Println("No vibe-ensembled instance is currently running")
		return
	}

	statusIcon := "OK"
	if !info.IsResponding {
		statusIcon = "DEGRADED"
	}
	fmt.Println()
	fmt.Println("vibe-ensembled instance status")
	fmt.Printf("  PID:       %d\n", info.PID)
	fmt.Printf("  Port:      %d\n", info.Port)
	fmt.Printf("  Started:   %s (%s ago)\n",
		info.StartTime.Format("2006-01-02 15:04:05"),
		time.Since(info.StartTime).Round(time.Second))
	fmt.Printf("  Health:    %s\n", statusIcon)
	fmt.Println()
}

func stopInstance(pidFilePath string, force bool) {
	mgr := instance.NewManager(pidFilePath, "", 0)
	info, err := mgr.CheckExistingInstance()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if info == nil {
		fmt.Println("No vibe-ensembled instance is currently running")
		return
	}

	if force {
		fmt.Printf("Force killing process %d...\n", info.PID)
		if err := instance.KillProcess(info.PID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to kill process: %v\n", err)
			os.Exit(1)
		}
		time.Sleep(1 * time.Second)
		mgr.RemovePIDFile()
		fmt.Println("Instance terminated")
		return
	}

	fmt.Printf("Sending graceful shutdown request to instance on port %d...\n", info.Port)
	if err := instance.SendShutdownRequest(info.Port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send shutdown request: %v\n", err)
		fmt.Println("Try using -force-stop to force kill the process")
		os.Exit(1)
	}
	fmt.Println("Waiting for graceful shutdown...")
	if instance.WaitForPortToBeAvailable(info.Port, 5*time.Second) {
		fmt.Println("Instance stopped successfully")
	} else {
		fmt.Println("Warning: Instance may still be running")
		fmt.Println("Try: vibe-ensembled -force-stop")
	}
}

func printBanner() {
	fmt.Println()
	fmt.Println("  vibe-ensembled — coordination server for autonomous coding agents")
	fmt.Println()
}
