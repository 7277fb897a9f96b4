// Package bootstrap wires drivers, gateways, usecases and servers together
// and owns the service lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"search-indexer/config"
	"search-indexer/consumer"
	"search-indexer/driver"
	"search-indexer/gateway"
	"search-indexer/internal/auth"
	authmw "search-indexer/internal/auth/middleware"
	"search-indexer/logger"
	"search-indexer/rest"
	"search-indexer/tokenize"
	"search-indexer/usecase"
	appOtel "search-indexer/utils/otel"
)

// App holds all components of the search-indexer service.
type App struct {
	httpServer    *http.Server
	dbClose       func()
	redisConsumer *consumer.Consumer
	otelShutdown  appOtel.ShutdownFunc
}

// Run initializes all components and starts the service.
// It blocks until ctx is cancelled, then performs graceful shutdown.
func Run(ctx context.Context) error {
	// ── OpenTelemetry ──
	otelCfg := appOtel.ConfigFromEnv()
	otelShutdown, err := appOtel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	// ── Logger ──
	logger.InitWithOTel(otelCfg.Enabled)
	logger.Logger.Info("Starting search-indexer",
		"service", otelCfg.ServiceName,
		"otel_enabled", otelCfg.Enabled,
	)

	// ── Tokenizer ──
	tok, err := tokenize.InitTokenizer()
	if err != nil {
		// Synonym enrichment for CJK tags degrades without it; search still works.
		logger.Logger.Error("Failed to initialize tokenizer", "err", err)
	}

	// ── Load config ──
	appCfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("Failed to load config", "err", err)
		return err
	}

	// ── Drivers (infrastructure layer) ──
	dbDriver, err := initDatabaseDriver(ctx, appCfg)
	if err != nil {
		logger.Logger.Error("Failed to initialize database driver", "err", err)
		return err
	}

	msClient, err := initMeilisearchClient()
	if err != nil {
		logger.Logger.Error("Failed to initialize Meilisearch", "err", err)
		dbDriver.Close()
		return err
	}
	searchDriver := driver.NewMeilisearchDriver(msClient)

	// ── Gateways (anti-corruption layer) ──
	reindexRepo := gateway.NewReindexRepositoryGateway(dbDriver)
	searchEngine := gateway.NewSearchEngineGateway(searchDriver)

	if err := searchEngine.EnsureIndexes(ctx); err != nil {
		logger.Logger.Error("Failed to ensure search indexes", "err", err)
		dbDriver.Close()
		return err
	}

	// ── Use cases (application layer) ──
	syncUsecase := usecase.NewSyncDocumentsUsecase(searchEngine, tok)
	reindexUsecase := usecase.NewReindexUsecase(reindexRepo, searchEngine)
	searchUsecase := usecase.NewSearchDocumentsUsecase(searchEngine)
	suggestUsecase := usecase.NewSuggestUsecase(searchEngine)
	statsUsecase := usecase.NewStatsUsecase(searchEngine)

	// ── Redis Streams Consumer ──
	var redisConsumer *consumer.Consumer
	consumerCfg := consumer.ConfigFromEnv()
	if consumerCfg.Enabled {
		eventHandler := consumer.NewSyncEventHandler(syncUsecase, reindexUsecase, logger.Logger)
		redisConsumer, err = consumer.NewConsumer(consumerCfg, eventHandler, logger.Logger)
		if err != nil {
			logger.Logger.Error("Failed to create Redis Streams consumer", "err", err)
		} else if err := redisConsumer.Start(ctx); err != nil {
			logger.Logger.Error("Failed to start Redis Streams consumer", "err", err)
		} else {
			logger.Logger.Info("Redis Streams consumer started",
				"streams", consumerCfg.Streams,
				"group", consumerCfg.GroupName,
			)
		}
	} else {
		logger.Logger.Info("Redis Streams consumer disabled")
	}

	// ── Servers ──
	authClient := auth.NewClient(auth.ConfigFromEnv())
	authMiddleware := authmw.NewAuthMiddleware(authClient)
	restHandler := rest.NewHandler(searchUsecase, suggestUsecase, statsUsecase)

	app := &App{
		httpServer:    newHTTPServer(restHandler, authMiddleware, otelCfg),
		dbClose:       dbDriver.Close,
		redisConsumer: redisConsumer,
		otelShutdown:  otelShutdown,
	}

	go func() {
		logger.Logger.Info("http listen", "addr", config.HTTPAddr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("http", "err", err)
		}
	}()

	// ── Wait for shutdown signal ──
	<-ctx.Done()
	app.shutdown()
	return nil
}

// shutdown drains the servers and the consumer, then closes the rest. The
// consumer stops first-class: in-flight events finish and get acknowledged
// before the process exits.
func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("http shutdown error", "err", err)
	}
	if a.redisConsumer != nil {
		a.redisConsumer.Stop()
	}
	if a.dbClose != nil {
		a.dbClose()
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := a.otelShutdown(otelCtx); err != nil {
		fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
	}
}
