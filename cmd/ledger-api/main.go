package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/api/middleware"
	"github.com/harvestline/escrow-ledger/internal/api/server"
	"github.com/harvestline/escrow-ledger/internal/api/shared/executor"
	"github.com/harvestline/escrow-ledger/internal/bootstrap"
	"github.com/harvestline/escrow-ledger/internal/bridge"
	"github.com/harvestline/escrow-ledger/internal/config"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/messaging"
	"github.com/harvestline/escrow-ledger/internal/providers/jetstream"
	"github.com/harvestline/escrow-ledger/internal/reconciler"
	"github.com/harvestline/escrow-ledger/internal/verify"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadLedgerAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ledger-api",
			"backend": cfg.Backend,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting escrow ledger API", zap.String("backend", cfg.Backend))

	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()
	streamEnabled := cfg.NATS.URL != ""

	// Engine events go to JetStream when a stream is configured
	var publishers []messaging.Publisher
	if streamEnabled && cfg.Backend == config.BackendEngine {
		natsPublisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			MaxAge:         cfg.NATS.MaxAge,
		}, natsJS, jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		defer natsPublisher.Close()
		publishers = append(publishers, natsPublisher)
		logger.InfoCtx(ctx, "Publishing ledger events to NATS JetStream")
	}

	backend, err := bootstrap.Open(ctx, bootstrap.Options{
		Backend:    cfg.Backend,
		Database:   cfg.Database,
		Ethereum:   cfg.Ethereum,
		Publishers: publishers,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to open ledger", zap.Error(err))
	}
	defer backend.Close()

	// The contract backend can take its notifications from the stream written by
	// contract-event-emitter instead of holding its own log subscription
	var notifier ledger.Notifier = backend.Ledger
	errCh := make(chan error, 2)
	if streamEnabled && cfg.Backend == config.BackendContract {
		hub := ledger.NewHub(0)
		eventBridge, err := bridge.NewBridge(bridge.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			ConsumerName:   cfg.NATS.ConsumerName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			AckWaitTimeout: cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
		}, natsJS, hub, jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create event bridge", zap.Error(err))
		}
		defer eventBridge.Close()

		go func() {
			if err := eventBridge.Run(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("event bridge stopped: %w", err)
			}
		}()
		notifier = hub
	}

	reader := ledger.NewRetryingReader(backend.Ledger, ledger.RetryConfig{})

	eventTypes, err := bootstrap.EventTypes(cfg.Reconciler.EventTypes)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid reconciler event types", zap.Error(err))
	}
	projection, err := reconciler.New(ctx, reader, notifier, reconciler.Config{
		EventTypes:  eventTypes,
		ScanTimeout: cfg.Reconciler.ScanTimeout,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to start reconciler", zap.Error(err))
	}
	defer projection.Close()

	verifier := verify.New(reader, verify.Config{Concurrency: cfg.Verify.Concurrency})
	defer verifier.Close()

	var journal executor.EscrowJournal
	if backend.Engine != nil {
		journal = backend.Engine
	}
	exec := executor.NewExecutor(backend.Ledger, reader, verifier, projection, journal)

	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}, exec)

	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "ledger-api"))
	}
	cancel()

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "server"))
	}

	logger.Info("Escrow ledger API stopped")
}
