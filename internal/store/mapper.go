package store

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/store/schema"
)

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func cloneWei(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func parseWeiColumn(column, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s value %q", column, value)
	}
	return v, nil
}

func toSchemaBatch(b *domain.Batch) schema.Batch {
	return schema.Batch{
		ID:           b.ID,
		ProduceName:  b.ProduceName,
		FarmLocation: b.FarmLocation,
		IPFSHash:     b.IPFSHash,
		Farmer:       b.Farmer.Hex(),
		Distributor:  b.Distributor.Hex(),
		Retailer:     b.Retailer.Hex(),
		PriceWei:     weiString(b.Price),
		EscrowWei:    weiString(b.Escrow),
		Status:       int16(b.Status),
		IsFunded:     b.IsFunded,
		IsPaid:       b.IsPaid,
		HarvestedAt:  b.HarvestTimestamp,
		PickedUpAt:   b.PickupTimestamp,
		DeliveredAt:  b.DeliveryTimestamp,
	}
}

func fromSchemaBatch(row *schema.Batch, items []schema.Item) (*domain.Batch, error) {
	price, err := parseWeiColumn("price_wei", row.PriceWei)
	if err != nil {
		return nil, err
	}
	escrow, err := parseWeiColumn("escrow_wei", row.EscrowWei)
	if err != nil {
		return nil, err
	}

	keys := make([]domain.SerialKey, 0, len(items))
	for _, it := range items {
		keys = append(keys, domain.SerialKey(common.HexToHash(it.SerialKey)))
	}

	return &domain.Batch{
		ID:                row.ID,
		ProduceName:       row.ProduceName,
		FarmLocation:      row.FarmLocation,
		IPFSHash:          row.IPFSHash,
		Farmer:            common.HexToAddress(row.Farmer),
		Distributor:       common.HexToAddress(row.Distributor),
		Retailer:          common.HexToAddress(row.Retailer),
		Price:             price,
		Escrow:            escrow,
		Status:            domain.BatchStatus(row.Status),
		IsFunded:          row.IsFunded,
		IsPaid:            row.IsPaid,
		HarvestTimestamp:  utcTime(row.HarvestedAt),
		PickupTimestamp:   utcTime(row.PickedUpAt),
		DeliveryTimestamp: utcTime(row.DeliveredAt),
		ItemSerialHashes:  keys,
	}, nil
}

func fromSchemaItem(row *schema.Item) *domain.Item {
	return &domain.Item{
		SerialKey: domain.SerialKey(common.HexToHash(row.SerialKey)),
		BatchID:   row.BatchID,
		State:     domain.ActivationState(row.State),
	}
}

func toSchemaShipment(s *domain.Shipment) schema.Shipment {
	return schema.Shipment{
		Index:        s.Index,
		Sender:       s.Sender.Hex(),
		SenderIndex:  s.SenderIndex,
		Receiver:     s.Receiver.Hex(),
		Distance:     s.Distance,
		PriceWei:     weiString(s.Price),
		Status:       int16(s.Status),
		IsPaid:       s.IsPaid,
		PickupTime:   s.PickupTime,
		DeliveryTime: s.DeliveryTime,
	}
}

func fromSchemaShipment(row *schema.Shipment) (*domain.Shipment, error) {
	price, err := parseWeiColumn("price_wei", row.PriceWei)
	if err != nil {
		return nil, err
	}
	return &domain.Shipment{
		Index:        row.Index,
		SenderIndex:  row.SenderIndex,
		Sender:       common.HexToAddress(row.Sender),
		Receiver:     common.HexToAddress(row.Receiver),
		Distance:     row.Distance,
		Price:        price,
		Status:       domain.ShipmentStatus(row.Status),
		IsPaid:       row.IsPaid,
		PickupTime:   utcTime(row.PickupTime),
		DeliveryTime: utcTime(row.DeliveryTime),
	}, nil
}

func toSchemaMovement(m *domain.EscrowMovement) schema.EscrowMovement {
	row := schema.EscrowMovement{
		ID:            m.ID,
		ShipmentIndex: m.ShipmentIndex,
		Kind:          string(m.Kind),
		FromAddress:   m.From.Hex(),
		ToAddress:     m.To.Hex(),
		AmountWei:     weiString(m.Amount),
		CreatedAt:     m.CreatedAt,
	}
	if m.BatchID != 0 {
		id := m.BatchID
		row.BatchID = &id
	}
	return row
}

func fromSchemaMovement(row *schema.EscrowMovement) (*domain.EscrowMovement, error) {
	amount, err := parseWeiColumn("amount_wei", row.AmountWei)
	if err != nil {
		return nil, err
	}
	m := &domain.EscrowMovement{
		ID:            row.ID,
		ShipmentIndex: row.ShipmentIndex,
		Kind:          domain.MovementKind(row.Kind),
		From:          common.HexToAddress(row.FromAddress),
		To:            common.HexToAddress(row.ToAddress),
		Amount:        amount,
		CreatedAt:     row.CreatedAt.UTC(),
	}
	if row.BatchID != nil {
		m.BatchID = *row.BatchID
	}
	return m, nil
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
