package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ShipmentStatus is the lifecycle position of a point-to-point shipment
type ShipmentStatus uint8

const (
	ShipmentPending ShipmentStatus = iota
	ShipmentInTransit
	ShipmentDelivered
)

var shipmentStatusNames = [...]string{
	ShipmentPending:   "PENDING",
	ShipmentInTransit: "IN_TRANSIT",
	ShipmentDelivered: "DELIVERED",
}

func (s ShipmentStatus) Valid() bool {
	return int(s) < len(shipmentStatusNames)
}

func (s ShipmentStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
	return shipmentStatusNames[s]
}

func (s ShipmentStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid shipment status: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ShipmentStatus) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for i, n := range shipmentStatusNames {
		if n == name {
			*s = ShipmentStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shipment status: %q", name)
}

// Shipment is a legacy escrowed delivery between two parties.
// Index is the global position; SenderIndex the position in the sender's own list.
type Shipment struct {
	Index        uint64         `json:"index"`
	SenderIndex  uint64         `json:"sender_index"`
	Sender       common.Address `json:"sender"`
	Receiver     common.Address `json:"receiver"`
	PickupTime   *time.Time     `json:"pickup_time,omitempty"`
	DeliveryTime *time.Time     `json:"delivery_time,omitempty"`
	Distance     uint64         `json:"distance"`
	Price        *big.Int       `json:"price"`
	Status       ShipmentStatus `json:"status"`
	IsPaid       bool           `json:"is_paid"`
}

// Clone returns a deep copy of the shipment
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	c := *s
	c.Price = cloneBig(s.Price)
	c.PickupTime = cloneTime(s.PickupTime)
	c.DeliveryTime = cloneTime(s.DeliveryTime)
	return &c
}
