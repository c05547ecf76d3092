package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/assistant"
	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
	"github.com/NguyenVanDuc36/AffiliHub/internal/comparison"
	"github.com/NguyenVanDuc36/AffiliHub/internal/config"
	"github.com/NguyenVanDuc36/AffiliHub/internal/handlers"
	"github.com/NguyenVanDuc36/AffiliHub/internal/httpserver"
	"github.com/NguyenVanDuc36/AffiliHub/internal/llm"
	"github.com/NguyenVanDuc36/AffiliHub/internal/metrics"
	"github.com/NguyenVanDuc36/AffiliHub/internal/similarity"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Example: `  affilihub serve
  CACHE_BACKEND=redis REDIS_ADDR=127.0.0.1:6379 affilihub serve --config prod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ----- Config + logger -----
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("llm_base_url", cfg.LLM.BaseURL),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// ----- Metrics -----
	metrics.Register()

	// ----- Cache -----
	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("cache close error", zap.Error(err))
		}
	}()

	// the memory backend sweeps itself
	if stores.Backend != cache.BackendMemory {
		go stores.RunSweeper(ctx, *cfg.Cache.SweepInterval, logger)
	}

	// ----- Catalog -----
	products := catalog.Seed()
	if cfg.CatalogFile != "" {
		if products, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return err
		}
		logger.Info("catalog loaded", zap.String("file", cfg.CatalogFile))
	}

	// ----- LLM client -----
	llmClient, err := llm.NewClient(llmConfig(cfg), logger)
	if err != nil {
		return err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Resolvers + handlers -----
	similar := similarity.New(products, llm.NewJSONGenerator(llmClient, "similarity"), stores.Similarity, similarity.Options{TTL: cfg.Cache.TTL})
	comparer := comparison.New(products, llm.NewJSONGenerator(llmClient, "comparison"), stores.Comparison, comparison.Options{TTL: cfg.Cache.TTL})
	chat := assistant.NewService(llmClient, products, assistant.NewConversationStore(assistant.DefaultHistoryLimit))

	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, cfg.RequestTimeout, httpserver.Handlers{
		Products:   handlers.NewProductHandler(products),
		Similar:    handlers.NewSimilarHandler(similar),
		Comparison: handlers.NewComparisonHandler(comparer),
		Chat:       handlers.NewChatHandler(chat),
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting affilihub", zap.String("addr", srv.Addr), zap.String("version", version))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ----- Graceful shutdown -----
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

func llmConfig(cfg *config.Config) llm.Config {
	retries := *cfg.LLM.MaxRetries
	if retries == 0 {
		// llm.Config treats 0 as "default"
		retries = -1
	}
	return llm.Config{
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		UpstreamTimeout: cfg.LLM.Timeout,
		MaxRetries:      retries,
	}
}
