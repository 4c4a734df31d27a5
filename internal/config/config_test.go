package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr: got=%q", cfg.HTTP.Addr)
	}
	if cfg.DB.Driver != "mysql" {
		t.Fatalf("driver: got=%q", cfg.DB.Driver)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("redis should be off by default")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
env: staging
http:
  addr: ":9090"
  shutdown_timeout: 3s
db:
  driver: sqlite
  dsn: "file:chat.db"
redis:
  enabled: true
  addr: "redis:6379"
cors:
  allow_origins: ["https://chat.example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "staging" {
		t.Fatalf("env: got=%q", cfg.Env)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env should override file: got=%q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout: got=%v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN != "file:chat.db" {
		t.Fatalf("db: got=%+v", cfg.DB)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("redis: got=%+v", cfg.Redis)
	}
	if len(cfg.CORS.AllowOrigins) != 2 || cfg.CORS.AllowOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors: got=%v", cfg.CORS.AllowOrigins)
	}
}

func TestValidate(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		cfg := Default()
		cfg.DB.Driver = "oracle"
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("prod needs secret", func(t *testing.T) {
		cfg := Default()
		cfg.Env = "prod"
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for default secret in prod")
		}
		cfg.Auth.AccessSecret = "a-real-secret"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
	t.Run("session check needs redis", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.CheckSession = true
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected parse error")
	}
}
