package schema

import "time"

// Shipment represents the shipments table - legacy point-to-point escrowed deliveries
type Shipment struct {
	// Index is the global, zero-based shipment position
	Index uint64 `gorm:"column:shipment_index;primaryKey;autoIncrement:false"`
	// Sender and SenderIndex identify the shipment from the sender's point of view
	Sender      string `gorm:"column:sender;not null;type:varchar(42);uniqueIndex:idx_shipments_sender_index,priority:1"`
	SenderIndex uint64 `gorm:"column:sender_index;not null;uniqueIndex:idx_shipments_sender_index,priority:2"`
	Receiver    string `gorm:"column:receiver;not null;type:varchar(42);index"`
	Distance    uint64 `gorm:"column:distance;not null"`
	// PriceWei is the escrowed price (stored as string to support up to 78 digits)
	PriceWei     string     `gorm:"column:price_wei;not null;type:numeric(78,0)"`
	Status       int16      `gorm:"column:status;not null"`
	IsPaid       bool       `gorm:"column:is_paid;not null;default:false"`
	PickupTime   *time.Time `gorm:"column:pickup_time;type:timestamptz"`
	DeliveryTime *time.Time `gorm:"column:delivery_time;type:timestamptz"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Shipment model
func (Shipment) TableName() string {
	return "shipments"
}
