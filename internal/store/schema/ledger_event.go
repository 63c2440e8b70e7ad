package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent represents the ledger_events table - append-only journal of committed transitions
type LedgerEvent struct {
	// Cursor is an auto-incrementing sequence number giving the global commit order
	Cursor int64 `gorm:"column:cursor;primaryKey;autoIncrement"`
	// EventID is the ULID carried by the published notification
	EventID string `gorm:"column:event_id;not null;type:char(26);uniqueIndex"`
	// EventType is the domain event type (batch_created, item_consumed, ...)
	EventType string `gorm:"column:event_type;not null;type:text;index"`
	// BatchID is set for batch and item events
	BatchID *uint64 `gorm:"column:batch_id;index"`
	// ShipmentIndex is set for shipment events
	ShipmentIndex *uint64 `gorm:"column:shipment_index"`
	// Actor is the address that performed the transition
	Actor string `gorm:"column:actor;not null;type:varchar(42)"`
	// Payload is the full event as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// Digest is keccak256 over the JCS-canonical payload
	Digest string `gorm:"column:digest;not null;type:char(66)"`
	// OccurredAt is the transition time
	OccurredAt time.Time `gorm:"column:occurred_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
