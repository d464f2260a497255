package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"procurement/db"
	"procurement/db/migrations"
	"procurement/internal/ai"
	"procurement/internal/attachments"
	"procurement/internal/config"
	"procurement/internal/events"
	"procurement/internal/handlers"
	"procurement/internal/intake"
	"procurement/internal/logging"
	"procurement/internal/proposals"
	"procurement/internal/rfps"
	"procurement/internal/vendors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	dbConn, err := db.Open(ctx, cfg.PostgresConn, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if cfg.MigrateOnStart {
		if err := migrations.Run(dbConn.DB); err != nil {
			return err
		}
	}
	store := db.NewStorage(dbConn)

	bus := events.NewBus()
	if cfg.NATSURL != "" {
		mirror, err := events.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer mirror.Close()
		bus.SubscribeAll(mirror.Handle)
		logger.Info("mirroring events to NATS", zap.String("url", cfg.NATSURL))
	}

	var objects intake.ObjectStore
	if cfg.AttachmentsEnabled() {
		s, err := attachments.NewStore(ctx, attachments.Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			return err
		}
		objects = s
	}

	var (
		analyzer proposals.Analyzer
		checker  handlers.AIChecker
	)
	provider, err := ai.NewProvider(ctx, ai.ProviderOptions{
		Name:         cfg.AIProvider,
		HFAPIKey:     cfg.HFAPIKey,
		HFModel:      cfg.HFModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Timeout:      cfg.AITimeout,
	})
	if err != nil {
		logger.Warn("AI analysis disabled", zap.Error(err))
	} else {
		client := ai.NewClient(provider, cfg.AITimeout, logger)
		analyzer, checker = client, client
	}

	rfpManager := rfps.NewManager(store, bus, logger)
	rfpManager.Subscribe(bus)
	proposalManager := proposals.NewManager(store, bus, analyzer, logger)

	h := handlers.NewHandler(handlers.Services{
		Vendors:   vendors.NewRegistry(store, logger),
		RFPs:      rfpManager,
		Proposals: proposalManager,
		Intake:    intake.NewAdapter(proposalManager, store, objects, logger),
		AI:        checker,
		Store:     store,
	}, logger, cfg.IsProduction())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	h.Mount(r)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddress), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
