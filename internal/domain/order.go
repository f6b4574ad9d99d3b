package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState tracks fulfillment progress. Values outside the known set
// come from the backend and are carried opaquely.
type OrderState string

const (
	OrderStateOnHold    OrderState = "ON_HOLD"
	OrderStatePreparing OrderState = "PREPARING"
	OrderStateDelivered OrderState = "DELIVERED"
)

// stateSequence is the only forward path a client may drive locally
var stateSequence = []OrderState{OrderStateOnHold, OrderStatePreparing, OrderStateDelivered}

func (s OrderState) position() int {
	for i, state := range stateSequence {
		if state == s {
			return i
		}
	}
	return -1
}

// IsKnown reports whether the state is part of the local state machine
func (s OrderState) IsKnown() bool {
	return s.position() >= 0
}

// CanTransitionTo allows exactly one step forward along ON_HOLD -> PREPARING -> DELIVERED
func (s OrderState) CanTransitionTo(next OrderState) bool {
	from, to := s.position(), next.position()
	if from < 0 || to < 0 {
		return false
	}
	return to == from+1
}

// IsTerminal reports whether no further local transition exists
func (s OrderState) IsTerminal() bool {
	return s == OrderStateDelivered
}

// OrderSituation tracks supplier acceptance, independent of OrderState
type OrderSituation string

const (
	OrderSituationPending  OrderSituation = "PENDING"
	OrderSituationApproved OrderSituation = "APPROVED"
)

// CanTransitionTo only allows PENDING -> APPROVED
func (s OrderSituation) CanTransitionTo(next OrderSituation) bool {
	return s == OrderSituationPending && next == OrderSituationApproved
}

// OrderBatchItem is one line of an order. Accepted is set by the supplier.
type OrderBatchItem struct {
	BatchID  string
	Quantity int
	Accepted bool
	Batch    Batch
}

// LineTotal is price * quantity of the referenced batch snapshot
func (i OrderBatchItem) LineTotal() decimal.Decimal {
	return i.Batch.LineTotal(i.Quantity)
}

// Order is a purchase request addressed to exactly one supplier
type Order struct {
	ID                     int64
	AdminRestaurantID      int64
	SupplierID             int64
	RequestedDate          time.Time
	Description            string
	PartiallyAccepted      bool
	RequestedProductsCount int
	TotalPrice             decimal.Decimal
	State                  OrderState
	Situation              OrderSituation
	Items                  []OrderBatchItem
}

// NewOrder builds a fresh ON_HOLD/PENDING order for one supplier with totals computed
func NewOrder(adminRestaurantID, supplierID int64, requestedDate time.Time, items []OrderBatchItem) *Order {
	order := &Order{
		AdminRestaurantID: adminRestaurantID,
		SupplierID:        supplierID,
		RequestedDate:     requestedDate,
		State:             OrderStateOnHold,
		Situation:         OrderSituationPending,
		Items:             items,
	}
	order.RecomputeTotals()
	return order
}

// RecomputeTotals restores TotalPrice and RequestedProductsCount from the items
func (o *Order) RecomputeTotals() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	o.TotalPrice = total
	o.RequestedProductsCount = len(o.Items)
}

// Transition moves the order one step forward. Same-state requests are no-ops.
func (o *Order) Transition(next OrderState) error {
	if o.State == next {
		return nil
	}
	if !o.State.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.State = next
	return nil
}

// ApplySupplierResponse marks the accepted lines and derives PartiallyAccepted.
// Any acceptance approves a pending order; the state is left untouched.
func (o *Order) ApplySupplierResponse(acceptedBatchIDs []string) error {
	if o.State != OrderStateOnHold {
		return ErrResponseAfterStart
	}

	accepted := make(map[string]bool, len(acceptedBatchIDs))
	for _, id := range acceptedBatchIDs {
		accepted[id] = true
	}
	lines := make(map[string]bool, len(o.Items))
	for _, item := range o.Items {
		lines[item.BatchID] = true
	}
	for id := range accepted {
		if !lines[id] {
			return ErrUnknownOrderItem
		}
	}

	acceptedCount := 0
	for i := range o.Items {
		o.Items[i].Accepted = accepted[o.Items[i].BatchID]
		if o.Items[i].Accepted {
			acceptedCount++
		}
	}

	o.PartiallyAccepted = DerivePartiallyAccepted(o.Items)
	if acceptedCount > 0 && o.Situation.CanTransitionTo(OrderSituationApproved) {
		o.Situation = OrderSituationApproved
	}
	return nil
}

// DerivePartiallyAccepted is true iff at least one but not all lines are accepted
func DerivePartiallyAccepted(items []OrderBatchItem) bool {
	accepted := 0
	for _, item := range items {
		if item.Accepted {
			accepted++
		}
	}
	return accepted > 0 && accepted < len(items)
}
