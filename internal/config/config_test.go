package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PS_HTTP_ADDR", ":9000")
	t.Setenv("PS_DEV_MODE", "false")
	t.Setenv("PS_DB_DSN", "postgres://localhost/pagescribe_test")
	t.Setenv("PS_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PS_LLM_PROVIDER", "ollama")
	t.Setenv("PS_LLM_MODEL", "qwen2.5:7b")
	t.Setenv("PS_LLM_TIMEOUT", "45s")
	t.Setenv("PS_LLM_RETRY_ATTEMPTS", "3")
	t.Setenv("PS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("expected http addr override")
	}
	if cfg.Dev.Mode {
		t.Fatalf("expected dev mode false")
	}
	if cfg.Database.DSN != "postgres://localhost/pagescribe_test" {
		t.Fatalf("expected dsn override")
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Fatalf("expected redis url override")
	}
	if cfg.LLM.Provider != "ollama" {
		t.Fatalf("expected llm provider override")
	}
	if cfg.LLM.Model != "qwen2.5:7b" {
		t.Fatalf("expected llm model override")
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Fatalf("expected llm timeout override")
	}
	if cfg.LLM.RetryAttempts != 3 {
		t.Fatalf("expected llm retry attempts override")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level override")
	}
}

func TestLoadRequiresDSNOutsideDevMode(t *testing.T) {
	t.Setenv("PS_DEV_MODE", "false")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without dsn outside dev mode")
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("http:\n  addr: \":7070\"\nllm:\n  provider: openai\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PS_LLM_PROVIDER", "ollama")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("expected yaml addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Fatalf("env must win over yaml, got %q", cfg.LLM.Provider)
	}
}
