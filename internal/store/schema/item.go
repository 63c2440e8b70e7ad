package schema

import "time"

// Item represents the items table - one physical unit keyed by its serial hash
type Item struct {
	// SerialKey is the 0x-prefixed keccak256 of the trimmed serial; unique across all batches
	SerialKey string `gorm:"column:serial_key;primaryKey;type:char(66)"`
	// BatchID references the batch that declared the item
	BatchID uint64 `gorm:"column:batch_id;not null;index:idx_items_batch_position,priority:1"`
	// Position keeps the declaration order within the batch
	Position int `gorm:"column:position;not null;index:idx_items_batch_position,priority:2"`
	// State is NOT_ACTIVE, ACTIVE or CONSUMED
	State string `gorm:"column:state;not null;type:text;default:'NOT_ACTIVE'"`
	// UpdatedAt is the timestamp of the last state change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Batch Batch `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}
