package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents application configuration. Values come from the process
// environment, then an optional YAML file named by CONFIG_FILE, then defaults.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	StoragePath    string
	StorageBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	LumaAPIKey    string
	LumaBaseURL   string

	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string
	AnalysisDemoFallback bool

	PollInterval    time.Duration
	PollMaxAttempts int

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

type source struct {
	file map[string]string
}

// LoadConfig loads .env files when present and builds the configuration.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	port := src.getEnv("PORT", "8080")
	// The write timeout outlives a blocking generation, which polls for up to five minutes.
	cfg := &Config{
		AppEnv:               src.getEnv("APP_ENV", "development"),
		Port:                 port,
		DatabaseURL:          src.getEnv("DATABASE_URL", ""),
		JWTSecret:            src.getEnv("JWT_SECRET", ""),
		StoragePath:          src.getEnv("STORAGE_PATH", "./data/storage"),
		StorageBaseURL:       strings.TrimRight(src.getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)), "/"),
		OpenAIAPIKey:         src.getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        src.getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LumaAPIKey:           src.getEnv("LUMA_API_KEY", ""),
		LumaBaseURL:          src.getEnv("LUMA_BASE_URL", "https://api.lumalabs.ai/dream-machine/v1"),
		GeminiAPIKey:         src.getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          src.getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:        src.getEnv("GEMINI_BASE_URL", ""),
		AnalysisDemoFallback: src.getEnvBool("ANALYSIS_DEMO_FALLBACK", false),
		PollInterval:         time.Second * time.Duration(src.getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:      src.getEnvInt("POLL_MAX_ATTEMPTS", 60),
		HTTPReadTimeout:      time.Second * time.Duration(src.getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(src.getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:      time.Second * time.Duration(src.getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      src.getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:   splitList(src.getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if cfg.RateLimitPerMin <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		switch vv := v.(type) {
		case []any:
			parts := make([]string, 0, len(vv))
			for _, item := range vv {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToLower(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToLower(k)] = fmt.Sprint(vv)
		}
	}
	return values, nil
}

func (s source) getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := s.file[strings.ToLower(key)]; ok && v != "" {
		return v
	}
	return fallback
}

func (s source) getEnvInt(key string, fallback int) int {
	if v := s.getEnv(key, ""); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func (s source) getEnvBool(key string, fallback bool) bool {
	if v := s.getEnv(key, ""); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
