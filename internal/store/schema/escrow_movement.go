package schema

import "time"

// EscrowMovement represents the escrow_movements table - journal of deposits, releases and refunds
type EscrowMovement struct {
	// ID is a ULID assigned by the ledger
	ID string `gorm:"column:id;primaryKey;type:char(26)"`
	// BatchID is set for batch escrow
	BatchID *uint64 `gorm:"column:batch_id;index"`
	// ShipmentIndex is set for shipment escrow
	ShipmentIndex *uint64 `gorm:"column:shipment_index;index"`
	// Kind is deposit, release or refund
	Kind string `gorm:"column:kind;not null;type:text"`
	// FromAddress and ToAddress use the zero address for the escrow side
	FromAddress string `gorm:"column:from_address;not null;type:varchar(42)"`
	ToAddress   string `gorm:"column:to_address;not null;type:varchar(42)"`
	// AmountWei is stored as string to support up to 78 digits
	AmountWei string    `gorm:"column:amount_wei;not null;type:numeric(78,0)"`
	CreatedAt time.Time `gorm:"column:created_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the EscrowMovement model
func (EscrowMovement) TableName() string {
	return "escrow_movements"
}
