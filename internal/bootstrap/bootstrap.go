// Package bootstrap opens the ledger backend selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/config"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/messaging"
	"github.com/harvestline/escrow-ledger/internal/providers/ethereum"
	"github.com/harvestline/escrow-ledger/internal/store"
)

// Backend is an opened ledger
type Backend struct {
	Ledger ledger.Ledger
	// Engine is set for the engine backend; it also serves the escrow journal
	Engine *ledger.Engine
	// Store is the engine's record store
	Store store.Store

	closers []func()
}

// Close releases connections in reverse opening order
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Options selects and configures a backend
type Options struct {
	Backend  string
	Database config.DatabaseConfig
	Ethereum config.EthereumConfig
	// Publishers receive committed engine events
	Publishers []messaging.Publisher
	Dialer     adapter.EthClientDialer
	Clock      adapter.Clock
}

// Open opens the engine over Postgres or memory, or the contract client
func Open(ctx context.Context, opts Options) (*Backend, error) {
	switch opts.Backend {
	case config.BackendEngine:
		return openEngine(ctx, opts)
	case config.BackendContract:
		return openContract(ctx, opts)
	}
	return nil, fmt.Errorf("unknown backend %q", opts.Backend)
}

func openEngine(ctx context.Context, opts Options) (*Backend, error) {
	b := &Backend{}

	if opts.Database.Enabled() {
		db, err := OpenDatabase(ctx, opts.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		b.Store = store.NewPGStore(db)
		logger.InfoCtx(ctx, "Using Postgres ledger store", zap.String("host", opts.Database.Host))
	} else {
		b.Store = store.NewMemoryStore()
		logger.WarnCtx(ctx, "No database configured, ledger state lives in memory")
	}

	clock := opts.Clock
	if clock == nil {
		clock = adapter.NewClock()
	}
	b.Engine = ledger.NewEngine(b.Store, ledger.NewHub(0), clock, adapter.NewJSON(), adapter.NewJCS(), opts.Publishers...)
	b.Ledger = b.Engine
	return b, nil
}

func openContract(ctx context.Context, opts Options) (*Backend, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = adapter.NewEthClientDialer()
	}

	client, err := dialer.Dial(ctx, opts.Ethereum.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial Ethereum RPC: %w", err)
	}

	lgr, err := ethereum.NewClient(ctx, ContractConfig(opts.Ethereum), client)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.InfoCtx(ctx, "Using escrow contract", zap.String("contract", opts.Ethereum.ContractAddress))
	return &Backend{Ledger: lgr, closers: []func(){client.Close}}, nil
}

// ContractConfig converts the configuration section to the provider's
func ContractConfig(cfg config.EthereumConfig) ethereum.Config {
	return ethereum.Config{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress,
		PrivateKey:      cfg.PrivateKey,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		PollInterval:    cfg.PollInterval,
	}
}

// OpenDatabase connects to Postgres, sizes the pool and migrates the ledger tables
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.ConfigureConnectionPool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// EventTypes parses configured event type names
func EventTypes(names []string) ([]domain.EventType, error) {
	var types []domain.EventType
	for _, name := range names {
		t := domain.EventType(strings.ToLower(strings.TrimSpace(name)))
		if t == "" {
			continue
		}
		if !domain.IsValidEventType(t) {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}
