package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atharvakonge/paper-trading-simulator/internal/config"
	"github.com/atharvakonge/paper-trading-simulator/internal/currency"
	"github.com/atharvakonge/paper-trading-simulator/internal/db"
	"github.com/atharvakonge/paper-trading-simulator/internal/handlers"
	"github.com/atharvakonge/paper-trading-simulator/internal/logger"
	"github.com/atharvakonge/paper-trading-simulator/internal/market"
	"github.com/atharvakonge/paper-trading-simulator/internal/models"
	"github.com/atharvakonge/paper-trading-simulator/internal/scheduler"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			log.Fatalw("failed to create database directory", "error", err)
		}
	}

	// Initialize database
	store, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer store.Close()

	stored, err := store.LoadSettings(ctx)
	if err != nil {
		log.Fatalw("failed to load settings", "error", err)
	}
	settings := models.SettingsFromKV(stored, cfg.DefaultSettings())

	if cfg.Market.Feed == config.FeedFinnhub && settings.APIKey == "" {
		log.Warn("finnhub feed selected without an API key; quotes will fail until one is saved")
	}

	finnhub := market.NewFinnhubClient(settings.APIKey, cfg.Market.RatePerSecond)
	source, err := newSource(cfg, finnhub, log)
	if err != nil {
		log.Fatalw("failed to create price source", "feed", cfg.Market.Feed, "error", err)
	}
	if runner, ok := source.(market.Runner); ok {
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("price stream stopped", "error", err)
			}
		}()
	}

	hub := handlers.NewPriceHub(source.Book(), log)
	go hub.Run(ctx)

	sched := scheduler.NewScheduler(source, log)
	_ = sched.RunNow(ctx)
	if err := sched.Start(settings.UpdateFrequency); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	portfolios := models.NewPortfolioManager(source, settings.InitialCapital)
	if err := sched.AddJob(sessionSweepInterval, func() {
		if n := portfolios.EvictIdle(cfg.Server.SessionTTL); n > 0 {
			log.Infow("evicted idle sessions", "count", n, "remaining", portfolios.Len())
		}
	}); err != nil {
		log.Fatalw("failed to schedule session eviction", "error", err)
	}

	// Initialize trade processor
	tradeProcessor := handlers.NewTradeProcessor(cfg.Server.Workers, portfolios, source, log)
	tradeProcessor.Start()
	defer tradeProcessor.Stop()

	h := handlers.NewHandler(handlers.Deps{
		Processor:  tradeProcessor,
		Portfolios: portfolios,
		Source:     source,
		Store:      store,
		Currency:   currency.NewConverter(nil),
		Finnhub:    finnhub,
		Hub:        hub,
		Settings:   settings,
		Log:        log,
		OnSettingsChanged: func(s models.Settings) {
			finnhub.SetAPIKey(s.APIKey)
			if err := sched.Reschedule(s.UpdateFrequency); err != nil {
				log.Errorw("failed to reschedule price refresh", "error", err)
			}
		},
	})

	// Set Gin mode based on environment
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.Default())
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("server starting", "addr", "http://localhost:"+cfg.Server.Port, "feed", source.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
	}
}

func newSource(cfg *config.Config, finnhub *market.FinnhubClient, log *zap.SugaredLogger) (market.Source, error) {
	switch cfg.Market.Feed {
	case config.FeedFixture:
		feed, err := market.NewFixtureFeed(cfg.Market.Fixture)
		if err != nil {
			return nil, err
		}
		return feed, nil
	case config.FeedFinnhub:
		return market.NewFinnhubFeed(finnhub, market.Symbols(), log), nil
	default:
		return market.NewSimulatedFeed(market.Symbols(), cfg.Market.Seed), nil
	}
}
