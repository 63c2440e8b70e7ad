package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/adapter"
	"github.com/harvestline/escrow-ledger/internal/block"
	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/ledger"
	"github.com/harvestline/escrow-ledger/internal/logger"
	"github.com/harvestline/escrow-ledger/internal/messaging"
)

const (
	// backfillStep is the initial block range of one eth_getLogs page
	backfillStep = uint64(100000)
	// backfillTimeout bounds a whole backfill from the cursor to the head
	backfillTimeout = 5 * time.Minute

	headTTL         = 5 * time.Second
	headStaleWindow = time.Minute
)

// Subscriber reads escrow contract logs. It serves the event emitter as a
// messaging.Subscriber and in-process reconcilers as a ledger.Notifier.
type Subscriber struct {
	client   adapter.EthClient
	contract common.Address
	blocks   block.Provider
}

var (
	_ messaging.Subscriber = (*Subscriber)(nil)
	_ ledger.Notifier      = (*Subscriber)(nil)
)

// NewSubscriber creates a log subscriber for the contract at cfg.ContractAddress
func NewSubscriber(cfg Config, client adapter.EthClient) (*Subscriber, error) {
	contract, err := parseContractAddress(cfg.ContractAddress)
	if err != nil {
		return nil, err
	}
	blocks := block.NewProvider(block.NewEthFetcher(client), block.Config{
		TTL:         headTTL,
		StaleWindow: headStaleWindow,
	}, adapter.NewClock())
	return &Subscriber{client: client, contract: contract, blocks: blocks}, nil
}

func (s *Subscriber) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{eventTopics()},
	}
}

// SubscribeEvents delivers contract events from fromBlock onwards. Past blocks are
// read with eth_getLogs before the live subscription starts at the head.
func (s *Subscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	parser := &logParser{blocks: s.blocks}

	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	if fromBlock > 0 && fromBlock <= head {
		logs, err := s.filterLogsWithPagination(ctx, fromBlock, head)
		if err != nil {
			return fmt.Errorf("failed to backfill blocks %d-%d: %w", fromBlock, head, err)
		}
		logger.InfoCtx(ctx, "Backfilled contract logs",
			zap.Uint64("fromBlock", fromBlock),
			zap.Uint64("toBlock", head),
			zap.Int("logs", len(logs)))
		for _, vLog := range logs {
			if err := s.deliver(ctx, parser, vLog, handler); err != nil {
				return err
			}
		}
	}

	query := s.query()
	query.FromBlock = new(big.Int).SetUint64(head + 1)

	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to filter logs: %w", err)
	}
	defer func() {
		logger.InfoCtx(ctx, "Unsubscribing from contract logs")
		sub.Unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			if vLog.BlockNumber <= head {
				continue
			}
			if err := s.deliver(ctx, parser, vLog, handler); err != nil {
				return err
			}
		}
	}
}

// deliver parses one log and hands it to the handler. Unparseable logs are skipped;
// handler errors stop the subscription so the cursor is not advanced past them.
func (s *Subscriber) deliver(ctx context.Context, parser *logParser, vLog types.Log, handler messaging.EventHandler) error {
	event, err := parser.parse(ctx, vLog)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.ErrorCtx(ctx, err, zap.String("message", "Error parsing log"), zap.String("txHash", vLog.TxHash.Hex()))
		return nil
	}
	if event == nil {
		return nil
	}
	if err := handler(event); err != nil {
		return fmt.Errorf("failed to handle %s event at block %d: %w", event.Type, event.BlockNumber, err)
	}
	return nil
}

// filterLogsWithPagination reads [fromBlock, toBlock] in pages, halving the page
// whenever the node refuses a range as too large
func (s *Subscriber) filterLogsWithPagination(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, backfillTimeout)
	defer cancel()

	var allLogs []types.Log
	step := backfillStep
	current := fromBlock
	for current <= toBlock {
		end := current + step - 1
		if end > toBlock {
			end = toBlock
		}

		query := s.query()
		query.FromBlock = new(big.Int).SetUint64(current)
		query.ToBlock = new(big.Int).SetUint64(end)

		logs, err := s.client.FilterLogs(timeoutCtx, query)
		if err != nil {
			if !isTooManyResultsError(err) || step == 1 {
				return nil, err
			}
			step /= 2
			logger.WarnCtx(ctx, "Too many results, reducing step size",
				zap.Uint64("newStepSize", step),
				zap.Uint64("fromBlock", current))
			continue
		}

		allLogs = append(allLogs, logs...)
		current = end + 1
	}
	return allLogs, nil
}

// isTooManyResultsError checks if the node rejected a log range as too large
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// GetLatestBlock returns the latest block number, cached for a few seconds
func (s *Subscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	number, err := s.blocks.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return number, nil
}

// Subscribe streams live contract events matching filter to handler until the
// subscription is cancelled or ctx is done
func (s *Subscriber) Subscribe(ctx context.Context, filter domain.EventFilter, handler ledger.Handler) (ledger.Subscription, error) {
	if handler == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "handler is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := s.query()
	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, domain.WrapError(domain.KindTransportFailure, err, "failed to subscribe to contract logs")
	}

	subCtx, cancel := context.WithCancel(ctx)
	ls := &logSubscription{cancel: cancel}
	parser := &logParser{blocks: s.blocks}

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-subCtx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					logger.ErrorCtx(subCtx, err, zap.String("message", "Contract log subscription failed"))
				}
				return
			case vLog := <-logs:
				event, err := parser.parse(subCtx, vLog)
				if err != nil {
					logger.WarnCtx(subCtx, "Skipping unparseable contract log", zap.Error(err))
					continue
				}
				if event != nil && filter.Match(event.Type) {
					handler(event)
				}
			}
		}
	}()

	return ls, nil
}

// Close closes the connection
func (s *Subscriber) Close() {
	if s.client == nil {
		return
	}
	s.client.Close()
	logger.Info("Ethereum connection closed")
}

type logSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (l *logSubscription) Unsubscribe() {
	l.once.Do(l.cancel)
}
