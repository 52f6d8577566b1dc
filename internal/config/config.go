// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for zero-downtime updates.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Limits  LimitsConfig  `yaml:"limits"`
	Health  HealthConfig  `yaml:"health_check"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	CORS    CORSConfig    `yaml:"cors"`
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodySize     int64         `yaml:"max_body_size"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Supported model backends.
const (
	BackendTEI         = "tei"
	BackendOllama      = "ollama"
	BackendOpenAI      = "openai"
	BackendHuggingFace = "huggingface"
)

// ModelConfig selects the pretrained model and the runtime serving it.
// The model is loaded once at startup; changes here need a restart.
type ModelConfig struct {
	Name      string        `yaml:"name"`
	Backend   string        `yaml:"backend"` // tei, ollama, openai, huggingface
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"` // literal, env://VAR or vault://path#key
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	Warmup    bool          `yaml:"warmup"`
}

// LimitsConfig bounds the work a single request can ask for.
type LimitsConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"` // 0 disables the check
}

// HealthConfig configures background probing of the model runtime.
type HealthConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

// Cache backend types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// CacheConfig configures the optional vector cache.
type CacheConfig struct {
	Enabled         bool             `yaml:"enabled"`
	Type            string           `yaml:"type"` // memory, redis
	TTL             time.Duration    `yaml:"ttl"`
	CleanupInterval time.Duration    `yaml:"cleanup_interval"`
	Redis           RedisCacheConfig `yaml:"redis"`
}

// RedisCacheConfig contains Redis connection settings for the vector cache.
type RedisCacheConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	ClusterAddrs   []string      `yaml:"cluster_addrs"`
	SentinelAddrs  []string      `yaml:"sentinel_addrs"`
	SentinelMaster string        `yaml:"sentinel_master"`
	Namespace      string        `yaml:"namespace"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PoolSize       int           `yaml:"pool_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP/HTTP endpoint (e.g., "localhost:4318")
	ServiceName string  `yaml:"service_name"` // Service name for traces
	SampleRate  float64 `yaml:"sample_rate"`  // Sampling rate (0.0 to 1.0)
	Insecure    bool    `yaml:"insecure"`     // Use plain HTTP
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled"`
	AllowAllOrigins  bool          `yaml:"allow_all_origins"`
	AllowCredentials bool          `yaml:"allow_credentials"`
	Allowlist        []string      `yaml:"allowlist"`
	Denylist         []string      `yaml:"denylist"`
	AllowMethods     []string      `yaml:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers"`
	MaxAge           time.Duration `yaml:"max_age"`
}

// SecretsConfig configures how secret references in the config are resolved.
type SecretsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Vault    VaultConfig   `yaml:"vault"`
}

// VaultConfig enables the vault:// secret scheme when Address is set.
type VaultConfig struct {
	Address    string `yaml:"address"`
	AuthMethod string `yaml:"auth_method"` // approle, cert
	RoleID     string `yaml:"role_id"`
	SecretID   string `yaml:"secret_id"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            5678,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024,
		},
		Model: ModelConfig{
			Name:      "sentence-transformers/all-MiniLM-L6-v2",
			Backend:   BackendTEI,
			BaseURL:   "http://127.0.0.1:8080",
			Dimension: 384,
			Timeout:   60 * time.Second,
			Warmup:    true,
		},
		Limits: LimitsConfig{
			MaxBatchSize: 2048,
		},
		Health: HealthConfig{
			Enabled:          false,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 3,
		},
		Cache: CacheConfig{
			Enabled:         false,
			Type:            CacheTypeMemory,
			TTL:             time.Hour,
			CleanupInterval: 10 * time.Minute,
			Redis: RedisCacheConfig{
				Addr:         "localhost:6379",
				Namespace:    "embedd",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				PoolSize:     10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4318",
			ServiceName: "embedd",
			SampleRate:  1.0,
			Insecure:    true,
		},
		CORS: CORSConfig{
			Enabled:      false,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:       10 * time.Minute,
		},
		Secrets: SecretsConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("server.max_body_size cannot be negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}

	if strings.TrimSpace(c.Model.Name) == "" {
		return fmt.Errorf("model.name is required")
	}
	switch c.Model.Backend {
	case BackendTEI, BackendOllama, BackendOpenAI, BackendHuggingFace:
	default:
		return fmt.Errorf("model.backend %q is not supported", c.Model.Backend)
	}
	if strings.TrimSpace(c.Model.BaseURL) == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if c.Model.Dimension < 0 {
		return fmt.Errorf("model.dimension cannot be negative")
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout cannot be negative")
	}

	if c.Limits.MaxBatchSize < 0 {
		return fmt.Errorf("limits.max_batch_size cannot be negative")
	}

	if c.Health.Interval < 0 || c.Health.Timeout < 0 || c.Health.FailureThreshold < 0 {
		return fmt.Errorf("health_check settings cannot be negative")
	}

	if c.Cache.Enabled {
		switch c.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			r := c.Cache.Redis
			if r.Addr == "" && len(r.ClusterAddrs) == 0 && len(r.SentinelAddrs) == 0 {
				return fmt.Errorf("cache.redis: addr, cluster_addrs or sentinel_addrs is required")
			}
			if len(r.SentinelAddrs) > 0 && r.SentinelMaster == "" {
				return fmt.Errorf("cache.redis.sentinel_master is required with sentinel_addrs")
			}
		default:
			return fmt.Errorf("cache.type %q is not supported", c.Cache.Type)
		}
		if c.Cache.TTL < 0 {
			return fmt.Errorf("cache.ttl cannot be negative")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not supported", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}

	if c.Secrets.Vault.Address != "" {
		switch c.Secrets.Vault.AuthMethod {
		case "approle":
			if c.Secrets.Vault.RoleID == "" {
				return fmt.Errorf("secrets.vault.role_id is required for approle auth")
			}
		case "cert":
		default:
			return fmt.Errorf("secrets.vault.auth_method %q is not supported", c.Secrets.Vault.AuthMethod)
		}
	}

	return nil
}
