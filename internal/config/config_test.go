package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 5678 {
		t.Errorf("default port = %d, want 5678", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "127.0.0.1:5678" {
		t.Errorf("default addr = %q, want 127.0.0.1:5678", cfg.Server.Addr())
	}
	if cfg.Model.Dimension != 384 {
		t.Errorf("default dimension = %d, want 384", cfg.Model.Dimension)
	}
	if !strings.HasSuffix(cfg.Model.Name, "all-MiniLM-L6-v2") {
		t.Errorf("default model = %q, want all-MiniLM-L6-v2", cfg.Model.Name)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "invalid port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "negative body size", mutate: func(c *Config) { c.Server.MaxBodySize = -1 }, wantErr: true},
		{name: "missing model name", mutate: func(c *Config) { c.Model.Name = " " }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Model.Backend = "onnx" }, wantErr: true},
		{name: "ollama backend", mutate: func(c *Config) { c.Model.Backend = BackendOllama }},
		{name: "missing base url", mutate: func(c *Config) { c.Model.BaseURL = "" }, wantErr: true},
		{name: "negative dimension", mutate: func(c *Config) { c.Model.Dimension = -1 }, wantErr: true},
		{name: "zero dimension learns from model", mutate: func(c *Config) { c.Model.Dimension = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Model.Timeout = -time.Second }, wantErr: true},
		{name: "negative batch limit", mutate: func(c *Config) { c.Limits.MaxBatchSize = -1 }, wantErr: true},
		{name: "unlimited batch", mutate: func(c *Config) { c.Limits.MaxBatchSize = 0 }},
		{name: "negative health interval", mutate: func(c *Config) { c.Health.Interval = -1 }, wantErr: true},
		{
			name: "unknown cache type",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Type = "memcached"
			},
			wantErr: true,
		},
		{
			name: "unknown cache type ignored when disabled",
			mutate: func(c *Config) {
				c.Cache.Type = "memcached"
			},
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Type = CacheTypeRedis
				c.Cache.Redis.Addr = ""
			},
			wantErr: true,
		},
		{
			name: "sentinel without master",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Type = CacheTypeRedis
				c.Cache.Redis.SentinelAddrs = []string{"a:26379"}
			},
			wantErr: true,
		},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: true},
		{name: "sample rate too high", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: true},
		{
			name: "vault approle without role id",
			mutate: func(c *Config) {
				c.Secrets.Vault.Address = "https://vault:8200"
				c.Secrets.Vault.AuthMethod = "approle"
			},
			wantErr: true,
		},
		{
			name: "vault cert auth",
			mutate: func(c *Config) {
				c.Secrets.Vault.Address = "https://vault:8200"
				c.Secrets.Vault.AuthMethod = "cert"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9000
model:
  backend: ollama
  name: all-minilm
  base_url: http://localhost:11434
  api_key: env://OLLAMA_TOKEN
cache:
  enabled: true
  type: redis
  ttl: 30m
  redis:
    addr: localhost:6379
logging:
  level: debug
  format: text
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Model.Backend != BackendOllama || cfg.Model.Name != "all-minilm" {
		t.Errorf("model = %+v, want ollama/all-minilm", cfg.Model)
	}
	if cfg.Model.APIKey != "env://OLLAMA_TOKEN" {
		t.Errorf("api_key = %q, secret references must be kept verbatim", cfg.Model.APIKey)
	}
	if cfg.Model.Dimension != 384 {
		t.Errorf("dimension = %d, want default 384", cfg.Model.Dimension)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("cache ttl = %v, want 30m", cfg.Cache.TTL)
	}
	if cfg.Cache.Redis.Namespace != "embedd" {
		t.Errorf("redis namespace = %q, want default embedd", cfg.Cache.Redis.Namespace)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("log format = %q, want text", cfg.Logging.Format)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("EMBEDD_TEST_PORT", "7001")
	t.Setenv("EMBEDD_TEST_URL", "http://tei.internal:80")

	content := `
server:
  port: ${EMBEDD_TEST_PORT}
model:
  base_url: ${EMBEDD_TEST_URL}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Model.BaseURL != "http://tei.internal:80" {
		t.Errorf("base_url = %q", cfg.Model.BaseURL)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unterminated"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("model:\n  backend: onnx\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFromFile(invalid)
	if err == nil || !strings.Contains(err.Error(), "validate config") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoadFromFile_ExampleConfig(t *testing.T) {
	cfg, err := LoadFromFile("../../config/config.example.yaml")
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Server.Port != 5678 {
		t.Errorf("port = %d, want 5678", cfg.Server.Port)
	}
	if cfg.Model.Backend != BackendTEI || cfg.Model.Dimension != 384 {
		t.Errorf("model = %s/%d, want tei/384", cfg.Model.Backend, cfg.Model.Dimension)
	}
	if cfg.Health.FailureThreshold != 3 {
		t.Errorf("failure_threshold = %d, want 3", cfg.Health.FailureThreshold)
	}
}
