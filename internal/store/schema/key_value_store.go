package schema

import "time"

// KeyValueStore holds small pieces of ledger state that are not records of their own:
// the contract log cursor and the batch id sequence
type KeyValueStore struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}

// Models lists every table model, in migration order
func Models() []interface{} {
	return []interface{}{
		&KeyValueStore{},
		&Batch{},
		&Item{},
		&Shipment{},
		&EscrowMovement{},
		&LedgerEvent{},
	}
}
