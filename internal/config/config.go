package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"redis"`
	LLM struct {
		Provider      string        `yaml:"provider"`
		Model         string        `yaml:"model"`
		OpenAIKey     string        `yaml:"openai_key"`
		OllamaURL     string        `yaml:"ollama_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
	} `yaml:"llm"`
	Security struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"security"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.Dev.Mode = true
	cfg.Redis.Queue = "capture_jobs"
	cfg.LLM.Provider = "noop"
	cfg.LLM.Model = "qwen2.5:0.5b"
	cfg.LLM.OllamaURL = "http://127.0.0.1:11434"
	cfg.LLM.Timeout = 30 * time.Second
	cfg.LLM.RetryAttempts = 2
	cfg.LLM.RetryBackoff = 500 * time.Millisecond
	cfg.Log.Level = "info"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	if !cfg.Dev.Mode && cfg.Database.DSN == "" {
		return cfg, errors.New("missing database.dsn (or PS_DB_DSN) outside dev mode")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PS_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("PS_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("PS_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PS_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PS_REDIS_QUEUE"); v != "" {
		cfg.Redis.Queue = v
	}
	if v := os.Getenv("PS_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("PS_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PS_OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("PS_OLLAMA_URL"); v != "" {
		cfg.LLM.OllamaURL = v
	}
	if v := os.Getenv("PS_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("PS_LLM_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.RetryAttempts = n
		}
	}
	if v := os.Getenv("PS_LLM_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.RetryBackoff = d
		}
	}
	if v := os.Getenv("PS_API_KEY"); v != "" {
		cfg.Security.APIKey = v
	}
	if v := os.Getenv("PS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
