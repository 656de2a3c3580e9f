// Package config loads and validates the coordination server's config.yaml
// (spec §6): storage, security, network, and coordination sections.
//
// Grounded on internal/types.TeamsConfig/NotificationsConfig (yaml struct
// tags) and internal/server/server.go's loadNotificationConfig
// (os.ReadFile + yaml.Unmarshal). Unlike that teacher function, a missing
// or malformed config.yaml here is a hard failure rather than a
// log-and-continue: Validate requires an explicit security.jwt_secret, and
// there is no safe default to fall back to for a production secret.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// StorageConfig mirrors storage.Config's YAML-facing fields (spec §6).
type StorageConfig struct {
	URL              string `yaml:"url"`
	MaxConnections   int    `yaml:"max_connections"`
	MigrateOnStartup bool   `yaml:"migrate_on_startup"`
}

func (c StorageConfig) Validate() error {
	if c.URL == "" {
		return domain.NewValidation("storage.url must not be empty")
	}
	if c.MaxConnections <= 0 {
		return domain.NewValidation("storage.max_connections must be greater than zero")
	}
	return nil
}

// SecurityConfig governs the access/audit control plane (spec §4.5-§4.6).
type SecurityConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	CSRFTokenTTL    time.Duration `yaml:"csrf_token_ttl"`
}

func (c SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return domain.NewValidation("security.jwt_secret must be at least 16 bytes")
	}
	if c.JWTIssuer == "" {
		return domain.NewValidation("security.jwt_issuer must not be empty")
	}
	if c.AccessTokenTTL <= 0 {
		return domain.NewValidation("security.access_token_ttl must be greater than zero")
	}
	if c.RefreshTokenTTL <= 0 {
		return domain.NewValidation("security.refresh_token_ttl must be greater than zero")
	}
	return nil
}

// NetworkConfig governs outbound pooling, compression, and WebSocket
// heartbeats (spec §4.7).
type NetworkConfig struct {
	PoolMaxPerHost        int           `yaml:"pool_max_per_host"`
	PoolMaxAge            time.Duration `yaml:"pool_max_age"`
	PoolMaxIdle           time.Duration `yaml:"pool_max_idle"`
	PoolSweepPeriod       time.Duration `yaml:"pool_sweep_period"`
	CompressionThreshold  int           `yaml:"compression_threshold"`
	CompressionLevel      int           `yaml:"compression_level"`
	HeartbeatPingInterval time.Duration `yaml:"heartbeat_ping_interval"`
	HeartbeatIdleBound    time.Duration `yaml:"heartbeat_idle_bound"`

	// RateLimitRequests/RateLimitWindow/RateLimitBurst bound how many
	// requests a single caller may make before httpapi starts returning
	// RateLimitExceeded (spec §5 Backpressure).
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
}

func (c NetworkConfig) Validate() error {
	if c.PoolMaxPerHost <= 0 {
		return domain.NewValidation("network.pool_max_per_host must be greater than zero")
	}
	if c.PoolSweepPeriod <= 0 {
		return domain.NewValidation("network.pool_sweep_period must be greater than zero")
	}
	if c.HeartbeatPingInterval <= 0 {
		return domain.NewValidation("network.heartbeat_ping_interval must be greater than zero")
	}
	if c.HeartbeatIdleBound <= c.HeartbeatPingInterval {
		return domain.NewValidation("network.heartbeat_idle_bound must exceed heartbeat_ping_interval")
	}
	if c.RateLimitRequests <= 0 {
		return domain.NewValidation("network.rate_limit_requests must be greater than zero")
	}
	if c.RateLimitWindow <= 0 {
		return domain.NewValidation("network.rate_limit_window must be greater than zero")
	}
	if c.RateLimitBurst <= 0 {
		return domain.NewValidation("network.rate_limit_burst must be greater than zero")
	}
	return nil
}

// CoordinationConfig governs the orchestration engine (spec §4.1-§4.3):
// agent liveness, the default workflow retry/timeout policy, and the
// messaging transport.
type CoordinationConfig struct {
	AgentIdleBound        time.Duration `yaml:"agent_idle_bound"`
	LivenessSweepInterval time.Duration `yaml:"liveness_sweep_interval"`
	WorkflowTimeout       time.Duration `yaml:"workflow_timeout"`
	WorkflowMaxRetries    int           `yaml:"workflow_max_retries"`
	WorkflowRetryDelay    time.Duration `yaml:"workflow_retry_delay"`
	ContinueOnFailure     bool          `yaml:"continue_on_failure"`
	ClaudeBinaryPath      string        `yaml:"claude_binary_path"`
	NATSURL               string        `yaml:"nats_url"`
	NATSEmbedded          bool          `yaml:"nats_embedded"`
	NATSEmbeddedPort      int           `yaml:"nats_embedded_port"`
	NATSJetStream         bool          `yaml:"nats_jetstream"`
	NATSDataDir           string        `yaml:"nats_data_dir"`
}

func (c CoordinationConfig) Validate() error {
	if c.AgentIdleBound <= 0 {
		return domain.NewValidation("coordination.agent_idle_bound must be greater than zero")
	}
	if c.LivenessSweepInterval <= 0 {
		return domain.NewValidation("coordination.liveness_sweep_interval must be greater than zero")
	}
	if c.WorkflowTimeout <= 0 {
		return domain.NewValidation("coordination.workflow_timeout must be greater than zero")
	}
	if c.WorkflowMaxRetries < 0 {
		return domain.NewValidation("coordination.workflow_max_retries must not be negative")
	}
	return nil
}

// HTTPConfig governs the external interface listener (spec §6).
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

func (c HTTPConfig) Validate() error {
	if c.ListenAddr == "" {
		return domain.NewValidation("http.listen_addr must not be empty")
	}
	return nil
}

// NotificationsConfig governs external alerting on audit events (supplements
// spec §3's audit log; not itself spec-named, grounded on the teacher's
// NotificationsConfig for Slack/Discord/email channel wiring).
type NotificationsConfig struct {
	MinSeverity string                `yaml:"min_severity"`
	Slack       *SlackChannelConfig   `yaml:"slack,omitempty"`
	Discord     *DiscordChannelConfig `yaml:"discord,omitempty"`
	Email       *EmailChannelConfig   `yaml:"email,omitempty"`
}

type SlackChannelConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

type DiscordChannelConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailChannelConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

func (c NotificationsConfig) Validate() error {
	return nil
}

// Config is the top-level config.yaml document (spec §6: "models the
// storage / security / network / coordination sections").
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Security      SecurityConfig      `yaml:"security"`
	Network       NetworkConfig       `yaml:"network"`
	Coordination  CoordinationConfig  `yaml:"coordination"`
	HTTP          HTTPConfig          `yaml:"http"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// Validate runs every section's Validate in turn, matching the teacher's
// AlertThresholds.Validate() per-field-check shape (internal/types/types.go),
// generalized to a struct of structs.
func (c Config) Validate() error {
	for name, v := range map[string]interface {
		Validate() error
	}{
		"storage":       c.Storage,
		"security":      c.Security,
		"network":       c.Network,
		"coordination":  c.Coordination,
		"http":          c.HTTP,
		"notifications": c.Notifications,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config section %q: %w", name, err)
		}
	}
	return nil
}

// Default returns a Config with every timer/threshold field populated to
// a sane operating value, for a caller that wants to layer a partial
// config.yaml over safe defaults rather than require every field.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			URL:              "vibe-ensemble.db",
			MaxConnections:   10,
			MigrateOnStartup: true,
		},
		Security: SecurityConfig{
			JWTIssuer:       "vibe-ensemble",
			BcryptCost:      12,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			CSRFTokenTTL:    30 * time.Minute,
		},
		Network: NetworkConfig{
			PoolMaxPerHost:        8,
			PoolMaxAge:            10 * time.Minute,
			PoolMaxIdle:           2 * time.Minute,
			PoolSweepPeriod:       time.Minute,
			CompressionThreshold:  1024,
			CompressionLevel:      6,
			HeartbeatPingInterval: 15 * time.Second,
			HeartbeatIdleBound:    2 * time.Minute,
			RateLimitRequests:     120,
			RateLimitWindow:       time.Minute,
			RateLimitBurst:        20,
		},
		Coordination: CoordinationConfig{
			AgentIdleBound:        60 * time.Second,
			LivenessSweepInterval: 30 * time.Second,
			WorkflowTimeout:       30 * time.Minute,
			WorkflowMaxRetries:    2,
			WorkflowRetryDelay:    5 * time.Second,
			ClaudeBinaryPath:      "claude",
			NATSEmbeddedPort:      4222,
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8080",
		},
	}
}

// Load reads path, unmarshals it over Default(), and validates the
// result. Grounded on loadNotificationConfig's os.ReadFile + yaml.Unmarshal
// shape, generalized from log-and-disable to return-error since this
// config is required rather than optional.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
