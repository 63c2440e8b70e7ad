package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/harvestline/escrow-ledger/internal/domain"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

func (e *Engine) CreateShipment(ctx context.Context, sender common.Address, req CreateShipmentRequest) (*domain.Shipment, error) {
	switch {
	case sender == (common.Address{}):
		return nil, domain.NewError(domain.KindInvalidInput, "sender address is required")
	case req.Receiver == (common.Address{}):
		return nil, domain.NewError(domain.KindInvalidInput, "receiver address is required")
	case req.Receiver == sender:
		return nil, domain.NewError(domain.KindInvalidInput, "receiver must differ from the sender")
	case req.Price == nil || req.Price.Sign() <= 0:
		return nil, domain.NewError(domain.KindInvalidInput, "price must be positive")
	case req.Value == nil || req.Value.Cmp(req.Price) != 0:
		return nil, domain.NewError(domain.KindEscrowMismatch,
			"value %s does not equal price %s", weiText(req.Value), req.Price)
	}
	if err := domain.CheckAmount("price", req.Price); err != nil {
		return nil, err
	}

	var created *domain.Shipment
	err := e.commit(ctx, func(w *txWriter) error {
		s := &domain.Shipment{
			Sender:   sender,
			Receiver: req.Receiver,
			Distance: req.Distance,
			Price:    new(big.Int).Set(req.Price),
			Status:   domain.ShipmentPending,
		}
		if err := w.InsertShipment(ctx, s); err != nil {
			return err
		}
		created = s

		index := s.Index
		if err := w.move(ctx, &domain.EscrowMovement{
			ShipmentIndex: &index,
			Kind:          domain.MovementDeposit,
			From:          sender,
			To:            domain.EscrowAccount,
			Amount:        new(big.Int).Set(s.Price),
		}); err != nil {
			return err
		}
		return w.record(ctx, &domain.LedgerEvent{
			Type:          domain.EventShipmentCreated,
			ShipmentIndex: &index,
			Actor:         sender,
			Amount:        s.Price,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Shipment created",
		zap.Uint64("index", created.Index),
		zap.String("sender", sender.Hex()),
	)
	return created, nil
}

func (e *Engine) StartShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error) {
	return e.advanceShipment(ctx, sender, receiver, senderIndex, domain.ShipmentInTransit)
}

func (e *Engine) CompleteShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64) (*domain.Shipment, error) {
	return e.advanceShipment(ctx, sender, receiver, senderIndex, domain.ShipmentDelivered)
}

func (e *Engine) advanceShipment(ctx context.Context, sender, receiver common.Address, senderIndex uint64, to domain.ShipmentStatus) (*domain.Shipment, error) {
	from := domain.ShipmentPending
	eventType := domain.EventShipmentStarted
	if to == domain.ShipmentDelivered {
		from = domain.ShipmentInTransit
		eventType = domain.EventShipmentCompleted
	}

	var updated *domain.Shipment
	err := e.commit(ctx, func(w *txWriter) error {
		s, err := w.GetShipment(ctx, sender, senderIndex)
		if err != nil {
			return err
		}
		if s == nil {
			return errShipmentNotFound(sender, senderIndex)
		}
		if s.Receiver != receiver {
			return domain.NewError(domain.KindInvalidInput,
				"receiver %s does not match shipment %d of sender %s", receiver.Hex(), senderIndex, sender.Hex())
		}
		if s.Status != from {
			return domain.NewError(domain.KindInvalidTransition,
				"shipment %d is %s, expected %s", s.Index, s.Status, from)
		}

		now := w.now
		s.Status = to
		if to == domain.ShipmentInTransit {
			s.PickupTime = &now
		} else {
			s.DeliveryTime = &now
			s.IsPaid = true
		}
		if err := w.UpdateShipment(ctx, s, from); err != nil {
			return err
		}
		updated = s

		index := s.Index
		event := &domain.LedgerEvent{Type: eventType, ShipmentIndex: &index, Actor: sender}
		if to == domain.ShipmentDelivered {
			if err := w.move(ctx, &domain.EscrowMovement{
				ShipmentIndex: &index,
				Kind:          domain.MovementRelease,
				From:          domain.EscrowAccount,
				To:            s.Receiver,
				Amount:        new(big.Int).Set(s.Price),
			}); err != nil {
				return err
			}
			event.Amount = s.Price
		}
		return w.record(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
