package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/api"
	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/catalog"
	"github.com/david/grantai/internal/config"
	"github.com/david/grantai/internal/db"
	"github.com/david/grantai/internal/discovery"
	"github.com/david/grantai/internal/logging"
	"github.com/david/grantai/internal/search"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log.Desugar())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	store := db.NewStore(pool)

	cat, err := catalog.All()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	registry, err := search.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	scraper := search.NewScraper(registry, log)

	llm := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	llm.Headers["X-Title"] = "Grant AI Manager"
	chat := ai.NewClient(cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatModel)
	chat.Headers["X-Title"] = "Grant AI Manager"
	if !llm.Configured() {
		log.Warn("AI_API_KEY is not set; matching and extraction are disabled")
	}

	discoverer := discovery.NewService(
		search.NewFirecrawlClient(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey),
		scraper,
		&ai.Extractor{LLM: llm},
		log,
	)

	sessions := appstate.NewSessions(func(userID string) appstate.Storage {
		return store.StateStorage(uuid.MustParse(userID))
	}, appstate.Options{
		Catalog:    cat,
		Scorer:     ai.NewMatcher(llm, log),
		Discoverer: discoverer,
		Log:        log,
	})

	srv := api.NewServer(api.Deps{
		Users:       store,
		Sessions:    sessions,
		Catalog:     cat,
		Chat:        chat,
		Scraper:     scraper,
		CORSOrigins: cfg.CORSOrigins,
		AdminSecret: cfg.AdminSecret,
		Log:         log,
	})

	go func() {
		log.Infof("Server starting on port %s...", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown failed: %v", err)
	}
}
