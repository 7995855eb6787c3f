package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "STORAGE_BASE_URL", "DATABASE_URL", "JWT_SECRET",
		"OPENAI_API_KEY", "LUMA_API_KEY", "LUMA_BASE_URL", "GEMINI_API_KEY",
		"ANALYSIS_DEMO_FALLBACK", "POLL_INTERVAL_SECONDS", "POLL_MAX_ATTEMPTS",
		"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.PollInterval != 5*time.Second || cfg.PollMaxAttempts != 60 {
		t.Fatalf("poll defaults mismatch: %s x %d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.AnalysisDemoFallback {
		t.Fatalf("demo fallback must be opt-in")
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DATABASE_URL should be optional")
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "1919")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "https://cdn.example.com/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "dreamlab.yaml")
	content := []byte("luma_base_url: https://luma.internal/v1\npoll_max_attempts: 12\nanalysis_demo_fallback: true\ncors_allowed_origins:\n  - https://a.example\n  - https://b.example\nluma_api_key: from-file\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LUMA_API_KEY", "from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LumaBaseURL != "https://luma.internal/v1" {
		t.Fatalf("LumaBaseURL = %q", cfg.LumaBaseURL)
	}
	if cfg.PollMaxAttempts != 12 || !cfg.AnalysisDemoFallback {
		t.Fatalf("overlay values not applied: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.LumaAPIKey != "from-env" {
		t.Fatalf("environment should win over file, got %q", cfg.LumaAPIKey)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigRejectsNonPositivePoll(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("POLL_MAX_ATTEMPTS", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero poll attempts")
	}
}
