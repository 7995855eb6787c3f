package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dreamlab/internal/adapter/repo"
	"dreamlab/internal/domain"
	"dreamlab/internal/generation"
	"dreamlab/internal/http/handlers"
	httpapi "dreamlab/internal/http/httpapi"
	"dreamlab/internal/infra"
	"dreamlab/internal/infra/credentials"
	"dreamlab/internal/providers/analysis"
	"dreamlab/internal/providers/image"
	"dreamlab/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The database is optional: without it the gallery is disabled and
	// provider keys must come from the environment.
	var (
		pool    *pgxpool.Pool
		sql     infra.SQLExecutor
		gallery domain.GalleryRepository
		store   *credentials.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		sql = infra.NewSQLRunner(pool, &logger)
		gallery = repo.NewGalleryRepository(sql)
		store = credentials.NewStore(sql)
	} else {
		logger.Warn().Msg("DATABASE_URL not set; gallery disabled")
	}

	keys, err := resolveKeys(ctx, cfg, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve provider keys")
	}
	for provider, key := range keys {
		if key == "" {
			logger.Warn().Str("provider", provider).Msg("provider key missing; requests will fail with a configuration error")
		}
	}

	orch, err := generation.New(generation.Options{
		Sync: []image.SyncAdapter{image.NewOpenAIAdapter(image.OpenAIOptions{
			APIKey:  keys[credentials.ProviderOpenAI],
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  &logger,
		})},
		Async: []image.AsyncAdapter{image.NewLumaAdapter(image.LumaOptions{
			APIKey:  keys[credentials.ProviderLuma],
			BaseURL: cfg.LumaBaseURL,
			Logger:  &logger,
		})},
		Policy: generation.Policy{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts},
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire generation orchestrator")
	}

	gemini := analysis.NewGeminiAnalyzer(analysis.GeminiOptions{
		APIKey:  keys[credentials.ProviderGemini],
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	analyzer := analysis.NewFallback(analysis.FallbackOptions{
		Primary: gemini,
		Enabled: cfg.AnalysisDemoFallback,
		Logger:  &logger,
	})

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	app := handlers.NewApp(handlers.Options{
		Generator: orch,
		Analyzer:  analyzer,
		Gallery:   gallery,
		Store:     files,
		Logger:    &logger,
	})
	router := httpapi.NewRouter(httpapi.Options{
		App:                app,
		Logger:             logger,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		StaticDir:          files.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().
		Str("addr", server.Addr()).
		Dur("poll_interval", cfg.PollInterval).
		Int("poll_max_attempts", cfg.PollMaxAttempts).
		Bool("analysis_demo_fallback", cfg.AnalysisDemoFallback).
		Msg("API listening")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
		return
	}
	logger.Info().Msg("server stopped")
}

// resolveKeys prefers environment keys and falls back to the credential store.
func resolveKeys(ctx context.Context, cfg *infra.Config, store *credentials.Store) (map[string]string, error) {
	configured := map[string]string{
		credentials.ProviderOpenAI: cfg.OpenAIAPIKey,
		credentials.ProviderLuma:   cfg.LumaAPIKey,
		credentials.ProviderGemini: cfg.GeminiAPIKey,
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	keys := make(map[string]string, len(configured))
	for _, provider := range credentials.Providers() {
		key, err := credentials.Resolve(ctx, store, provider, configured[provider])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", provider, err)
		}
		keys[provider] = key
	}
	return keys, nil
}
