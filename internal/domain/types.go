package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BatchStatus is the lifecycle position of a batch.
// The numeric values follow the contract enum order.
type BatchStatus uint8

const (
	BatchStatusHarvested BatchStatus = iota
	BatchStatusFunded
	BatchStatusPickedUp
	BatchStatusDelivered
	BatchStatusDenied
	BatchStatusRefunded
)

var batchStatusNames = [...]string{
	BatchStatusHarvested: "HARVESTED",
	BatchStatusFunded:    "FUNDED",
	BatchStatusPickedUp:  "PICKED_UP",
	BatchStatusDelivered: "DELIVERED",
	BatchStatusDenied:    "DENIED",
	BatchStatusRefunded:  "REFUNDED",
}

// Valid reports whether the status is one of the known values
func (s BatchStatus) Valid() bool {
	return int(s) < len(batchStatusNames)
}

func (s BatchStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
	return batchStatusNames[s]
}

// IsTerminal reports whether no transition leaves the status
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusDelivered || s == BatchStatusRefunded
}

// MarshalText renders the status by name
func (s BatchStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid batch status: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts the status name in any case
func (s *BatchStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseBatchStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseBatchStatus parses a status name such as "PICKED_UP"
func ParseBatchStatus(name string) (BatchStatus, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range batchStatusNames {
		if n == name {
			return BatchStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown batch status: %q", name)
}

// Role is the part a party plays in a batch
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
)

// Batch is one harvested lot of produce moving from a farmer to a retailer
type Batch struct {
	ID                uint64         `json:"batch_id"`
	ProduceName       string         `json:"produce_name"`
	FarmLocation      string         `json:"farm_location"`
	IPFSHash          string         `json:"ipfs_hash"`
	Farmer            common.Address `json:"farmer"`
	Distributor       common.Address `json:"distributor"`
	Retailer          common.Address `json:"retailer"`
	Price             *big.Int       `json:"price"`
	Status            BatchStatus    `json:"status"`
	IsFunded          bool           `json:"is_funded"`
	IsPaid            bool           `json:"is_paid"`
	Escrow            *big.Int       `json:"escrow"`
	HarvestTimestamp  *time.Time     `json:"harvest_timestamp,omitempty"`
	PickupTimestamp   *time.Time     `json:"pickup_timestamp,omitempty"`
	DeliveryTimestamp *time.Time     `json:"delivery_timestamp,omitempty"`
	ItemSerialHashes  []SerialKey    `json:"item_serial_hashes"`
}

// Party returns the address bound to the given role
func (b *Batch) Party(role Role) common.Address {
	switch role {
	case RoleFarmer:
		return b.Farmer
	case RoleDistributor:
		return b.Distributor
	case RoleRetailer:
		return b.Retailer
	}
	return common.Address{}
}

// HasSerial reports whether key was declared when the batch was created
func (b *Batch) HasSerial(key SerialKey) bool {
	for _, k := range b.ItemSerialHashes {
		if k == key {
			return true
		}
	}
	return false
}

// SetStatus moves the batch to status and keeps the derived flags consistent
func (b *Batch) SetStatus(status BatchStatus) {
	b.Status = status
	b.IsFunded = status != BatchStatusHarvested
	b.IsPaid = status == BatchStatusDelivered
}

// Clone returns a deep copy of the batch
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.Price = cloneBig(b.Price)
	c.Escrow = cloneBig(b.Escrow)
	c.HarvestTimestamp = cloneTime(b.HarvestTimestamp)
	c.PickupTimestamp = cloneTime(b.PickupTimestamp)
	c.DeliveryTimestamp = cloneTime(b.DeliveryTimestamp)
	c.ItemSerialHashes = append([]SerialKey(nil), b.ItemSerialHashes...)
	return &c
}

// ActivationState is the retail state of a single item
type ActivationState string

const (
	ItemNotActive ActivationState = "NOT_ACTIVE"
	ItemActive    ActivationState = "ACTIVE"
	ItemConsumed  ActivationState = "CONSUMED"
)

// Item is one physical unit tracked by its serial key
type Item struct {
	SerialKey SerialKey       `json:"serial_key"`
	BatchID   uint64          `json:"batch_id"`
	State     ActivationState `json:"activation_state"`
}

// History is the provenance answer for a serial key: the item and its owning batch
type History struct {
	Item  Item  `json:"item"`
	Batch Batch `json:"batch"`
}

// VerificationStatus is the consumer-facing verdict for a serial number
type VerificationStatus string

const (
	VerificationVerifiedActive  VerificationStatus = "VERIFIED_ACTIVE"
	VerificationAlreadyConsumed VerificationStatus = "ALREADY_CONSUMED"
	VerificationNotYetInStore   VerificationStatus = "NOT_YET_IN_STORE"
	VerificationInvalid         VerificationStatus = "INVALID"
)

// VerificationFor maps an item state to its verdict
func VerificationFor(state ActivationState) VerificationStatus {
	switch state {
	case ItemActive:
		return VerificationVerifiedActive
	case ItemConsumed:
		return VerificationAlreadyConsumed
	case ItemNotActive:
		return VerificationNotYetInStore
	}
	return VerificationInvalid
}

// ActivationFor is the inverse of VerificationFor.
// The boolean is false for INVALID, which has no item behind it.
func ActivationFor(status VerificationStatus) (ActivationState, bool) {
	switch status {
	case VerificationVerifiedActive:
		return ItemActive, true
	case VerificationAlreadyConsumed:
		return ItemConsumed, true
	case VerificationNotYetInStore:
		return ItemNotActive, true
	}
	return "", false
}

// Verification is the result of a verification query
type Verification struct {
	Serial    string             `json:"serial"`
	SerialKey SerialKey          `json:"serial_key"`
	Status    VerificationStatus `json:"status"`
	Batch     *Batch             `json:"batch,omitempty"`
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
