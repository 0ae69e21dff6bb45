// Command server runs the self-query retrieval engine behind an HTTP API,
// wiring config, the LLM adapter, the schema cache, and the engine before
// handing them to the router.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ontobot/sparql-selfquery/internal/cache"
	"github.com/ontobot/sparql-selfquery/internal/config"
	"github.com/ontobot/sparql-selfquery/internal/handler"
	"github.com/ontobot/sparql-selfquery/internal/llm"
	"github.com/ontobot/sparql-selfquery/internal/middleware"
	"github.com/ontobot/sparql-selfquery/internal/repository"
	"github.com/ontobot/sparql-selfquery/internal/router"
	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

func main() {
	if err := run(); err != nil {
		slog.Error("[SelfQuery] fatal startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	adapter, err := llm.BuildAdapter(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey)
	if err != nil {
		return err
	}

	var schemaCache selfquery.SchemaCache
	if cfg.RedisAddr != "" {
		schemaCache = cache.NewRedisSchemaCache(cfg.RedisAddr, 30*time.Minute)
	} else {
		schemaCache = cache.NewMemorySchemaCache(30 * time.Minute)
	}

	engine := selfquery.NewEngine(cfg, adapter, schemaCache)
	selfquery.OnQueryRejected = middleware.QueriesRejected.Inc

	var queryLog *repository.QueryLogRepository
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			slog.Warn("[SelfQuery] query-log persistence disabled", "error", err)
		} else {
			queryLog = repository.NewQueryLogRepository(pool)
		}
	}

	queryHandler := handler.NewQueryHandler(handler.QueryDeps{
		Engine:       engine,
		Adapter:      adapter,
		QueryLog:     queryLog,
		DefaultModel: cfg.LLMDefaultModel,
	})

	mux := router.New(router.Dependencies{Query: queryHandler})

	srv := &http.Server{
		Addr:         ":" + envPort(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[SelfQuery] listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("[SelfQuery] shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func envPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}
