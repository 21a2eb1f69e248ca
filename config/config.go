package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	Relay      RelayConfig      `yaml:"relay"`
	Presence   PresenceConfig   `yaml:"presence"`
	Auth       AuthConfig       `yaml:"auth"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications. The private key
// is normally supplied via the VAPID_PRIVATE_KEY environment variable rather
// than the config file.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Configured reports whether both VAPID keys are present.
func (p *PushConfig) Configured() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// RelayConfig holds the settings for the push.foo style polling relay.
type RelayConfig struct {
	BaseURL             string        `yaml:"base_url"`
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	StatePath           string        `yaml:"state_path"`
}

// PresenceConfig holds the presence heartbeat settings.
type PresenceConfig struct {
	HeartbeatSeconds int           `yaml:"heartbeat_seconds"`
	Heartbeat        time.Duration `yaml:"-"`
}

// AuthConfig holds the settings for verifying externally minted session
// tokens. Token issuance is out of scope for this service.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path and applies environment
// overrides for secrets.
func Load(path string) (*Config, error) {
	// A .env file is optional; environment variables win either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Relay.PollIntervalSeconds <= 0 {
		cfg.Relay.PollIntervalSeconds = 30
	}
	cfg.Relay.PollInterval = time.Duration(cfg.Relay.PollIntervalSeconds) * time.Second

	if cfg.Presence.HeartbeatSeconds <= 0 {
		cfg.Presence.HeartbeatSeconds = 300
	}
	cfg.Presence.Heartbeat = time.Duration(cfg.Presence.HeartbeatSeconds) * time.Second

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
