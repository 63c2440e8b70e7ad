package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/api/shared/executor"
	"github.com/harvestline/escrow-ledger/internal/bootstrap"
	"github.com/harvestline/escrow-ledger/internal/config"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/reconciler"
	"github.com/harvestline/escrow-ledger/internal/verify"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: escrowctl [-config file] [-env dir] <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-18s %s\n", cmd.name, cmd.summary)
	}
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	config.ChdirRepoRoot()
	cfg, err := config.LoadCLIConfig(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Progress goes to stderr, results to stdout
	if err := logger.Initialize(logger.Config{
		Debug: cfg.Debug,
		Tags:  map[string]string{"service": "escrowctl"},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, flag.Args())
	stop()
	logger.Flush(time.Second)
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.CLIConfig, args []string) int {
	backend, err := bootstrap.Open(ctx, bootstrap.Options{
		Backend:  cfg.Backend,
		Database: cfg.Database,
		Ethereum: cfg.Ethereum,
	})
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("backend", cfg.Backend))
		return 1
	}
	defer backend.Close()

	caller, err := resolveCaller(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	reader := ledger.NewRetryingReader(backend.Ledger, ledger.RetryConfig{})
	verifier := verify.New(reader, verify.Config{Concurrency: cfg.Verify.Concurrency})
	defer verifier.Close()

	var journal executor.EscrowJournal
	if backend.Engine != nil {
		journal = backend.Engine
	}

	c := &cli{
		exec:   executor.NewExecutor(backend.Ledger, reader, verifier, nil, journal),
		caller: caller,
		out:    os.Stdout,
		watch: func(ctx context.Context) (*reconciler.Reconciler, error) {
			types, err := bootstrap.EventTypes(cfg.Reconciler.EventTypes)
			if err != nil {
				return nil, err
			}
			return reconciler.New(ctx, reader, backend.Ledger, reconciler.Config{
				EventTypes:  types,
				ScanTimeout: cfg.Reconciler.ScanTimeout,
			})
		},
	}

	if err := c.run(ctx, args); err != nil {
		printError(err)
		return 1
	}
	return 0
}

// resolveCaller picks the acting address: the configured caller for the engine,
// the signing key's address for the contract
func resolveCaller(cfg *config.CLIConfig) (*common.Address, error) {
	if cfg.Backend == config.BackendContract {
		key := strings.TrimPrefix(strings.TrimSpace(cfg.Ethereum.PrivateKey), "0x")
		if key == "" {
			return nil, nil
		}
		pk, err := crypto.HexToECDSA(key)
		if err != nil {
			return nil, fmt.Errorf("invalid ethereum.private_key: %w", err)
		}
		addr := crypto.PubkeyToAddress(pk.PublicKey)
		return &addr, nil
	}

	if cfg.Caller == "" {
		return nil, nil
	}
	addr, err := domain.ParseAddress(cfg.Caller)
	if err != nil {
		return nil, fmt.Errorf("invalid caller: %w", err)
	}
	return &addr, nil
}

func printError(err error) {
	if kind := domain.KindOf(err); kind != "" {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", kind, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
