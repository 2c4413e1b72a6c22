package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shop-auth/internal/config"
	"github.com/Skotchmaster/shop-auth/internal/db"
	"github.com/Skotchmaster/shop-auth/internal/events"
	"github.com/Skotchmaster/shop-auth/internal/hash"
	"github.com/Skotchmaster/shop-auth/internal/httpserver"
	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/repo"
	"github.com/Skotchmaster/shop-auth/internal/service"
	"github.com/Skotchmaster/shop-auth/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("auth_service_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	gdb, err := db.Open(initCtx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err := db.Migrate(migrateCtx, gdb)
		cancel()
		if err != nil {
			return err
		}
	}

	hasher := hash.New(hash.Params{
		MemoryKiB:  cfg.PasswordMemoryKiB,
		Iterations: cfg.PasswordIterations,
		Threads:    cfg.PasswordThreads,
	})

	tokenSvc, err := tokens.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	authHTTP := &httpserver.AuthHTTP{
		Svc: &service.AuthService{
			Repo:      &repo.GormRepo{DB: gdb, Hasher: hasher},
			Hasher:    hasher,
			Tokens:    tokenSvc,
			Events:    publisher,
			OpTimeout: cfg.QueryTimeout,
		},
	}

	e := httpserver.New(&httpserver.Deps{
		AuthHandler:     authHTTP,
		Tokens:          tokenSvc,
		Logger:          logger,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Ready:           func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	errCh := make(chan error, 1)
	go func() {
		logger.Info("auth_service_started", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("auth_service_stopping")
	return e.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	var pubs events.Multi

	if len(cfg.KafkaBrokers) > 0 {
		pubs = append(pubs, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaUserTopic, logger))
		logger.Info("kafka_events_enabled", "topic", cfg.KafkaUserTopic)
	}

	if cfg.ESURL != "" {
		es, err := events.NewElasticPublisher(elasticsearch.Config{
			Addresses: []string{cfg.ESURL},
			Username:  cfg.ESUser,
			Password:  cfg.ESPassword,
		}, cfg.ESAuthIndex)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := es.Ping(pingCtx); err != nil {
			logger.Warn("elastic_unreachable", "error", err)
		}
		cancel()
		pubs = append(pubs, es)
		logger.Info("elastic_events_enabled", "index", cfg.ESAuthIndex)
	}

	if len(pubs) == 0 {
		return events.Nop{}, nil
	}
	return pubs, nil
}
