package schema

import (
	"time"
)

// Batch represents the batches table - one harvested lot and its escrow state
type Batch struct {
	// ID is the ledger-assigned batch id (sequence starts at 1)
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// ProduceName is the crop or product name given by the farmer
	ProduceName string `gorm:"column:produce_name;not null;type:text"`
	// FarmLocation is a free-form origin description
	FarmLocation string `gorm:"column:farm_location;not null;type:text"`
	// IPFSHash points at the off-ledger certificate ("N/A" when absent)
	IPFSHash string `gorm:"column:ipfs_hash;not null;type:text"`
	// Farmer, Distributor and Retailer are checksummed party addresses
	Farmer      string `gorm:"column:farmer;not null;type:varchar(42);index"`
	Distributor string `gorm:"column:distributor;not null;type:varchar(42);index"`
	Retailer    string `gorm:"column:retailer;not null;type:varchar(42);index"`
	// PriceWei is the agreed price (stored as string to support up to 78 digits)
	PriceWei string `gorm:"column:price_wei;not null;type:numeric(78,0)"`
	// EscrowWei is the amount currently held in escrow for the batch
	EscrowWei string `gorm:"column:escrow_wei;not null;type:numeric(78,0);default:0"`
	// Status is the numeric lifecycle status (contract enum order)
	Status   int16 `gorm:"column:status;not null;index"`
	IsFunded bool  `gorm:"column:is_funded;not null;default:false"`
	IsPaid   bool  `gorm:"column:is_paid;not null;default:false"`
	// HarvestedAt, PickedUpAt and DeliveredAt are set once by the owning transition
	HarvestedAt *time.Time `gorm:"column:harvested_at;type:timestamptz"`
	PickedUpAt  *time.Time `gorm:"column:picked_up_at;type:timestamptz"`
	DeliveredAt *time.Time `gorm:"column:delivered_at;type:timestamptz"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Batch model
func (Batch) TableName() string {
	return "batches"
}
