package httpapi

import (
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/mcpserver"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/messaging"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/security"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/service"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/workflow"
)

// API wires the service tier and the security plane into a mux.Router.
// Grounded on internal/server.Server's single-struct-holds-everything
// shape, narrowed to the spec's HTTP surface (spec §6).
type API struct {
	users     *service.UserService
	tokens    *service.TokenService
	agents    *service.AgentService
	issues    *service.IssueService
	knowledge *service.KnowledgeService
	messages  *messaging.Coordinator
	workflows *workflow.Driver

	mcp *mcpserver.Server

	jwt     *security.JWTManager
	passwds security.PasswordHasher
	csrf    *security.CSRFStore
	auditor *security.Auditor
	refresh *refreshStore
	limiter *rateLimiter

	log *log.Logger

	// ShutdownChan is closed when a caller POSTs /api/shutdown, so
	// cmd/vibe-ensembled's main select loop can treat it the same as a
	// SIGTERM. Grounded on internal/server/server.go's ShutdownChan.
	ShutdownChan chan struct{}
	shutdownOnce sync.Once
}

type Services struct {
	Users     *service.UserService
	Tokens    *service.TokenService
	Agents    *service.AgentService
	Issues    *service.IssueService
	Knowledge *service.KnowledgeService
	Messages  *messaging.Coordinator
	Workflows *workflow.Driver
	MCP       *mcpserver.Server
}

type Security struct {
	JWT       *security.JWTManager
	Passwords security.PasswordHasher
	CSRF      *security.CSRFStore
	Auditor   *security.Auditor

	// RateLimitRequests/RateLimitWindow/RateLimitBurst configure the
	// per-caller token bucket (spec §5 Backpressure), normally sourced
	// from config.NetworkConfig. A zero RateLimitRequests falls back to
	// a conservative built-in budget rather than disabling the limiter.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

func NewAPI(svc Services, sec Security) *API {
	reqs, window, burst := sec.RateLimitRequests, sec.RateLimitWindow, sec.RateLimitBurst
	if reqs <= 0 {
		reqs, window, burst = 120, time.Minute, 20
	}
	return &API{
		users:        svc.Users,
		tokens:       svc.Tokens,
		agents:       svc.Agents,
		issues:       svc.Issues,
		knowledge:    svc.Knowledge,
		messages:     svc.Messages,
		workflows:    svc.Workflows,
		mcp:          svc.MCP,
		jwt:          sec.JWT,
		passwds:      sec.Passwords,
		csrf:         sec.CSRF,
		auditor:      sec.Auditor,
		refresh:      newRefreshStore(),
		limiter:      newRateLimiter(reqs, window, burst),
		log:          log.New(os.Stderr, "[HTTPAPI] ", log.LstdFlags),
		ShutdownChan: make(chan struct{}),
	}
}

// Router builds the complete route table. Grounded on
// internal/server/server.go's s.router = mux.NewRouter(); api :=
// s.router.PathPrefix("/api").Subrouter() composition.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", a.handleHealth).Methods("GET")
	// Unauthenticated alias under /api so instance.HealthCheck/
	// SendShutdownRequest (which poll a fixed /api/... path) work
	// without a bearer token during startup and shutdown.
	r.HandleFunc("/api/health", a.handleHealth).Methods("GET")
	r.HandleFunc("/api/shutdown", a.handleShutdownRequest).Methods("POST")

	// /mcp is the JSON-RPC engine's transport endpoint (spec §4.1): agents
	// dial it directly rather than going through the bearer-token API
	// surface, matching the teacher's mcpServerURL convention of a bare
	// host:port/mcp address handed to spawned child processes.
	r.Handle("/mcp", a.rateLimitMiddleware(http.HandlerFunc(a.handleMCP))).Methods("POST")

	// /metrics exposes the network layer's pool/compression/heartbeat
	// counters (internal/network) on the default Prometheus registerer,
	// matching r3e-network-service_layer's promhttp.Handler() wiring.
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", a.handleLogin).Methods("POST")
	auth.HandleFunc("/register", a.handleRegister).Methods("POST")
	auth.HandleFunc("/refresh", a.handleRefresh).Methods("POST")
	auth.HandleFunc("/logout", a.handleLogout).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(a.authMiddleware)
	api.Use(a.rateLimitMiddleware)

	a.registerAgentRoutes(api)
	a.registerIssueRoutes(api)
	a.registerKnowledgeRoutes(api)
	a.registerMessageRoutes(api)
	a.registerUserRoutes(api)
	a.registerTokenRoutes(api)
	a.registerWorkflowRoutes(api)

	return r
}

// resolveAgentToken parses the "<tokenID>.<secret>" bearer form and
// verifies it against the stored bcrypt hash (spec §3, §4.6). Unlike a
// JWT, an agent token can't be verified without a storage round trip.
func (a *API) resolveAgentToken(raw string) (*domain.AgentToken, bool) {
	tokenID, secret, ok := strings.Cut(raw, ".")
	if !ok || tokenID == "" || secret == "" {
		return nil, false
	}
	t, err := a.tokens.Get(tokenID)
	if err != nil {
		return nil, false
	}
	if !t.IsValid(time.Now()) {
		return nil, false
	}
	if !a.passwds.Verify(secret, t.SecretHash) {
		return nil, false
	}
	return t, true
}

// handleShutdownRequest closes ShutdownChan once, unblocking main's
// select loop so it can run the same graceful-shutdown sequence it
// would on SIGTERM. Grounded on internal/server/server.go's
// RequestShutdown.
func (a *API) handleShutdownRequest(w http.ResponseWriter, r *http.Request) {
	a.shutdownOnce.Do(func() { close(a.ShutdownChan) })
	respondJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
}
