package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// transition is one edge of the batch state machine
type transition struct {
	name  string
	role  domain.Role
	from  domain.BatchStatus
	to    domain.BatchStatus
	event domain.EventType
}

var (
	transitionFund = transition{
		name: "fund", role: domain.RoleRetailer,
		from: domain.BatchStatusHarvested, to: domain.BatchStatusFunded,
		event: domain.EventBatchFunded,
	}
	transitionPickup = transition{
		name: "pickup", role: domain.RoleDistributor,
		from: domain.BatchStatusFunded, to: domain.BatchStatusPickedUp,
		event: domain.EventBatchPickedUp,
	}
	transitionDeliver = transition{
		name: "deliver", role: domain.RoleRetailer,
		from: domain.BatchStatusPickedUp, to: domain.BatchStatusDelivered,
		event: domain.EventBatchDelivered,
	}
	transitionDeny = transition{
		name: "deny", role: domain.RoleRetailer,
		from: domain.BatchStatusPickedUp, to: domain.BatchStatusDenied,
		event: domain.EventBatchDenied,
	}
	transitionRefund = transition{
		name: "refund", role: domain.RoleFarmer,
		from: domain.BatchStatusDenied, to: domain.BatchStatusRefunded,
		event: domain.EventBatchRefunded,
	}
)

var transitions = []transition{
	transitionFund,
	transitionPickup,
	transitionDeliver,
	transitionDeny,
	transitionRefund,
}

// CanTransition reports whether the state machine has an edge from -> to
func CanTransition(from, to domain.BatchStatus) bool {
	for _, t := range transitions {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// RoleFor returns the role allowed to move a batch from -> to
func RoleFor(from, to domain.BatchStatus) (domain.Role, bool) {
	for _, t := range transitions {
		if t.from == from && t.to == to {
			return t.role, true
		}
	}
	return "", false
}

// CanActivate reports whether items of a batch in status may be activated
func CanActivate(status domain.BatchStatus) bool {
	return status == domain.BatchStatusPickedUp || status == domain.BatchStatusDelivered
}

// check validates caller and status for t against the stored batch.
// Order: role, then status. Existence is checked by the caller.
func (t transition) check(b *domain.Batch, caller common.Address) error {
	if b.Party(t.role) != caller {
		return domain.NewError(domain.KindUnauthorized,
			"caller %s is not the %s of batch %d", caller.Hex(), t.role, b.ID)
	}
	if b.Status != t.from {
		return domain.NewError(domain.KindInvalidTransition,
			"batch %d is %s, expected %s", b.ID, b.Status, t.from)
	}
	return nil
}
