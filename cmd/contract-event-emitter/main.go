package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/bootstrap"
	"github.com/harvestline/escrow-ledger/internal/config"
	"github.com/harvestline/escrow-ledger/internal/emitter"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/providers/ethereum"
	"github.com/harvestline/escrow-ledger/internal/providers/jetstream"
	"github.com/harvestline/escrow-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadContractEmitterConfig(*configFile, *envPath)
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
			"service": "contract-event-emitter",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting contract event emitter", zap.String("contract", cfg.Ethereum.ContractAddress))

	// The block cursor survives restarts only with a database
	var cursors store.CursorStore
	if cfg.Database.Enabled() {
		db, err := bootstrap.OpenDatabase(ctx, cfg.Database)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		cursors = store.NewCursorStore(db)
		logger.InfoCtx(ctx, "Connected to database")
	} else {
		cursors = store.NewMemoryStore()
		logger.WarnCtx(ctx, "No database configured, the block cursor is not persisted")
	}

	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()

	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}

	// The subscriber owns the client from here; Close on the emitter releases it
	subscriber, err := ethereum.NewSubscriber(bootstrap.ContractConfig(cfg.Ethereum), ethClient)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create contract subscriber", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to Ethereum node")

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
	logger.InfoCtx(ctx, "Connected to NATS JetStream")

	eventEmitter := emitter.NewEmitter(
		subscriber,
		natsPublisher,
		cursors,
		emitter.Config{
			Source:          "contract:" + strings.ToLower(cfg.Ethereum.ContractAddress),
			StartBlock:      cfg.Ethereum.StartBlock,
			CursorSaveFreq:  cfg.Emitter.CursorSaveFreq,
			CursorSaveDelay: cfg.Emitter.CursorSaveDelay,
		},
		clockAdapter,
	)
	defer eventEmitter.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := eventEmitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case <-natsPublisher.CloseChan():
		logger.InfoCtx(ctx, "NATS connection closed unexpectedly")
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "emitter"))
	}
	cancel()

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	logger.Info("Contract event emitter stopped")
}
