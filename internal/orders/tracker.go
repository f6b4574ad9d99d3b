package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"

	"go.uber.org/zap"
)

// Tracker validates order transitions locally before sending them to the
// backend, which stays authoritative for the stored state.
type Tracker struct {
	remote    remote.Client
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	snapshots map[string][]domain.Order
}

func NewTracker(client remote.Client, publisher events.Publisher, logger *zap.Logger) *Tracker {
	return &Tracker{
		remote:    client,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[string][]domain.Order),
	}
}

// Advance moves the order one step forward. Requesting the current state is a no-op.
// An out-of-sequence request is an integrity violation: it is logged at DPanic
// (panics in development) and never sent to the backend.
func (t *Tracker) Advance(ctx context.Context, orderID int64, next domain.OrderState) (*domain.Order, error) {
	order, err := t.remote.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.State
	if err := order.Transition(next); err != nil {
		t.logger.DPanic("Rejected out-of-sequence order transition",
			zap.Int64("order_id", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(next)),
		)
		return nil, fmt.Errorf("%w: %s -> %s", err, from, next)
	}
	if from == next {
		return order, nil
	}

	updated, err := t.remote.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, t.publisher, t.logger, events.OrderStateChanged{
		OrderID:    orderID,
		From:       string(from),
		To:         string(updated.State),
		Situation:  string(updated.Situation),
		OccurredAt: t.now(),
	})
	return updated, nil
}

// RecordSupplierResponse marks the accepted lines of an ON_HOLD order and
// approves it when anything was accepted. A response to an order already past
// ON_HOLD is an integrity violation, logged at DPanic like Advance.
func (t *Tracker) RecordSupplierResponse(ctx context.Context, orderID int64, acceptedBatchIDs []string) (*domain.Order, error) {
	order, err := t.remote.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	situation := order.Situation
	if err := order.ApplySupplierResponse(acceptedBatchIDs); err != nil {
		t.logger.DPanic("Rejected supplier response after preparation started",
			zap.Int64("order_id", orderID),
			zap.String("state", string(order.State)),
			zap.Error(err),
		)
		return nil, err
	}

	updated, err := t.remote.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}

	if updated.Situation != situation {
		events.Emit(ctx, t.publisher, t.logger, events.OrderStateChanged{
			OrderID:    orderID,
			From:       string(updated.State),
			To:         string(updated.State),
			Situation:  string(updated.Situation),
			OccurredAt: t.now(),
		})
	}
	return updated, nil
}

// ListForBuyer returns the orders placed by a restaurant, or the last
// known list with stale=true when the backend is unreachable.
func (t *Tracker) ListForBuyer(ctx context.Context, adminRestaurantID int64) ([]domain.Order, bool) {
	orders, err := t.remote.ListOrdersByAdminRestaurant(ctx, adminRestaurantID)
	return t.remember(fmt.Sprintf("buyer:%d", adminRestaurantID), orders, err)
}

// ListForSupplier returns the orders addressed to a supplier
func (t *Tracker) ListForSupplier(ctx context.Context, supplierID int64) ([]domain.Order, bool) {
	orders, err := t.remote.ListOrdersBySupplier(ctx, supplierID)
	return t.remember(fmt.Sprintf("supplier:%d", supplierID), orders, err)
}

func (t *Tracker) remember(key string, orders []domain.Order, err error) ([]domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.logger.Warn("Backend order fetch failed, serving snapshot", zap.String("view", key), zap.Error(err))
		if cached, ok := t.snapshots[key]; ok {
			return cached, true
		}
		return []domain.Order{}, true
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	t.snapshots[key] = orders
	return orders, false
}
