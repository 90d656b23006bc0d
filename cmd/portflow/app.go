package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"portflow/internal/api"
	"portflow/internal/assistant"
	"portflow/internal/blob"
	"portflow/internal/cache"
	"portflow/internal/config"
	"portflow/internal/core"
	"portflow/internal/export"
	"portflow/internal/identity"
	"portflow/internal/predictions"
	"portflow/internal/weather"
	"portflow/pkg/domain"
)

// app is the wired backend. Close releases everything newApp opened.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    core.PersistentStore
	service  *core.Service
	local    *identity.Local
	registry *prometheus.Registry
	cache    cache.Cache
	exports  *export.Worker
	server   *api.Server
}

// openService opens the configured store and builds the service with its
// identity directory. The caller closes the store.
func openService(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics core.MetricsRecorder) (core.PersistentStore, *core.Service, *identity.Local, error) {
	store, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	var (
		directory domain.IdentityDirectory
		local     *identity.Local
	)
	switch cfg.Auth.Directory {
	case "supabase":
		directory = identity.NewSupabaseAdmin(cfg.Auth.SupabaseURL, cfg.Auth.ServiceRoleKey, &http.Client{Timeout: 15 * time.Second})
	default:
		local = identity.NewLocal(store)
		directory = local
	}

	svc := core.NewService(store,
		core.WithLogger(core.NewZapLogger(logger.Named("service"))),
		core.WithMetricsRecorder(metrics),
		core.WithLocation(cfg.Location()),
		core.WithIdentityDirectory(directory),
	)
	return store, svc, local, nil
}

func newAssistant(ctx context.Context, cfg config.AssistantConfig, timeout time.Duration) (*assistant.Assistant, error) {
	var provider assistant.Provider
	switch cfg.Provider {
	case "gemini":
		gemini, err := assistant.NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		provider = gemini
	default:
		provider = assistant.NewOllama(cfg.OllamaURL, timeout)
	}
	return assistant.New(provider, cfg.Model), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	var metrics core.MetricsRecorder
	if cfg.Server.MetricsEnabled {
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, fmt.Errorf("register service metrics: %w", err)
		}
		metrics = recorder
	}

	a.store, a.service, a.local, err = openService(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	a.cache, err = cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	artifacts, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.exports = export.NewWorker(a.service, artifacts, logger, 32)
	a.exports.Start()

	deps := api.Dependencies{
		Service: a.service,
		Exports: a.exports,
		Logger:  logger,
	}
	if a.local != nil {
		deps.Accounts = a.local
	}
	if cfg.Auth.JWTSecret != "" {
		deps.Tokens = identity.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL())
	}
	if cfg.Weather.APIKey != "" {
		deps.Weather = weather.NewClient(weather.Config{
			APIKey:   cfg.Weather.APIKey,
			BaseURL:  cfg.Weather.BaseURL,
			City:     cfg.Weather.City,
			CacheTTL: cfg.WeatherCacheTTL(),
			Timeout:  cfg.WeatherTimeout(),
		}, a.cache, logger)
	} else {
		logger.Warn("weather api key not set; /weather/current is disabled")
	}
	chat, err := newAssistant(ctx, cfg.Assistant, cfg.AssistantTimeout())
	if err != nil {
		logger.Warn("assistant disabled", zap.Error(err))
	} else {
		logger.Info("assistant enabled", zap.String("provider", chat.Provider()))
		deps.Assistant = chat
	}
	if cfg.Predictions.BaseURL != "" {
		deps.Predictions = predictions.NewClient(cfg.Predictions.BaseURL, cfg.PredictionsTimeout())
	}

	opts := api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthRequired:   cfg.Auth.Required,
	}
	if cfg.Server.MetricsEnabled {
		opts.Registry = a.registry
	}
	a.server, err = api.NewServer(deps, opts)
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}
	return a, nil
}

// Close stops the export worker and closes the cache and the store.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.exports != nil {
		if err := a.exports.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop export worker: %w", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
