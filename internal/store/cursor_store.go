package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harvestline/escrow-ledger/internal/store/schema"
)

const batchSequenceKey = "sequence:batch_id"

// CursorStore defines the interface for storing and retrieving contract log cursors
//
//go:generate mockgen -source=cursor_store.go -destination=../mocks/cursor_store.go -package=mocks -mock_names=CursorStore=MockCursorStore
type CursorStore interface {
	// GetBlockCursor retrieves the last processed block number for a contract source
	GetBlockCursor(ctx context.Context, source string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a contract source
	SetBlockCursor(ctx context.Context, source string, blockNumber uint64) error
}

type cursorStore struct {
	db *gorm.DB
}

// NewCursorStore creates a new cursor store
func NewCursorStore(db *gorm.DB) CursorStore {
	return &cursorStore{db: db}
}

func cursorKey(source string) string {
	return fmt.Sprintf("block_cursor:%s", source)
}

// GetBlockCursor retrieves the last processed block number for a contract source
func (s *cursorStore) GetBlockCursor(ctx context.Context, source string) (uint64, error) {
	value, ok, err := getKeyValue(s.db.WithContext(ctx), cursorKey(source))
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if !ok {
		return 0, nil
	}

	blockNumber, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a contract source
func (s *cursorStore) SetBlockCursor(ctx context.Context, source string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   cursorKey(source),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	if err := s.db.WithContext(ctx).Save(&kv).Error; err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}

func getKeyValue(db *gorm.DB, key string) (string, bool, error) {
	var kv schema.KeyValueStore
	err := db.Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return kv.Value, true, nil
}

// nextSequence increments a counter row and returns the new value.
// Must run inside a transaction; the row lock serializes concurrent allocations.
func nextSequence(tx *gorm.DB, key string) (uint64, error) {
	var kv schema.KeyValueStore
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("key = ?", key).First(&kv).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var current uint64
	if err == nil {
		current, err = strconv.ParseUint(kv.Value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt sequence %s: %w", key, err)
		}
	}

	next := current + 1
	kv = schema.KeyValueStore{Key: key, Value: strconv.FormatUint(next, 10)}
	if err := tx.Save(&kv).Error; err != nil {
		return 0, err
	}
	return next, nil
}
