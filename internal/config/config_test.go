//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfig_Server(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CODECRAFT_JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	t.Run("applies defaults", func(t *testing.T) {
		p := writeConfig(t, `
auth:
  jwt_secret: s3cret
database:
  url: postgres://u:p@localhost/db
ai:
  gemini_key: g-key
`)
		cfg, err := LoadConfig(p, RoleServer, false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.AI.Provider != "gemini" {
			t.Errorf("want provider gemini, got %s", cfg.AI.Provider)
		}
		if cfg.AI.DefaultModel != "gemini-2.5-pro" {
			t.Errorf("want default model gemini-2.5-pro, got %s", cfg.AI.DefaultModel)
		}
		if cfg.Server.Port != 8000 || cfg.Database.Driver != "postgres" {
			t.Errorf("unexpected defaults: port=%d driver=%s", cfg.Server.Port, cfg.Database.Driver)
		}
		if cfg.Redis.TTL != time.Hour {
			t.Errorf("want redis ttl 1h, got %s", cfg.Redis.TTL)
		}
	})

	t.Run("requires jwt secret", func(t *testing.T) {
		p := writeConfig(t, "database:\n  url: x\nai:\n  gemini_key: k\n")
		if _, err := LoadConfig(p, RoleServer, false); err == nil {
			t.Fatal("expected error for missing jwt secret")
		}
	})

	t.Run("echo provider needs dev", func(t *testing.T) {
		p := writeConfig(t, "auth:\n  jwt_secret: s\ndatabase:\n  url: x\n")
		if _, err := LoadConfig(p, RoleServer, false); err == nil {
			t.Fatal("expected error for echo provider outside dev")
		}
		cfg, err := LoadConfig(p, RoleServer, true)
		if err != nil {
			t.Fatalf("dev LoadConfig: %v", err)
		}
		if cfg.AI.Provider != "echo" {
			t.Errorf("want echo, got %s", cfg.AI.Provider)
		}
	})

	t.Run("rejects bad encryption key", func(t *testing.T) {
		p := writeConfig(t, "auth:\n  jwt_secret: s\ndatabase:\n  url: x\nai:\n  openai_key: o\nsecurity:\n  encryption_key: short\n")
		if _, err := LoadConfig(p, RoleServer, false); err == nil {
			t.Fatal("expected error for short encryption key")
		}
	})

	t.Run("missing file is an error for the server", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), RoleServer, false); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestLoadConfig_ClientFromEnv(t *testing.T) {
	t.Setenv("CODECRAFT_TOKEN", "tok")
	t.Setenv("CODECRAFT_BASE_URL", "http://gw:9000")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), RoleClient, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Client.Token != "tok" || cfg.Client.BaseURL != "http://gw:9000" {
		t.Fatalf("env overrides not applied: %+v", cfg.Client)
	}
	if cfg.Client.Lang != "en" {
		t.Errorf("want lang en, got %s", cfg.Client.Lang)
	}
}
