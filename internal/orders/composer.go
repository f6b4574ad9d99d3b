package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart = errors.New("cart has no items")
	// ErrPartialSubmission is returned when some supplier orders were created and some were not
	ErrPartialSubmission = errors.New("some supplier orders were not submitted")
	// ErrSubmissionFailed is returned when no supplier order was created
	ErrSubmissionFailed = errors.New("no supplier order was submitted")
)

// SupplierFailure is a supplier group whose order was not created.
// Its lines stay in the cart.
type SupplierFailure struct {
	SupplierID int64
	Order      domain.Order
	Err        error
}

// SubmitResult reports each supplier group of one submission
type SubmitResult struct {
	Submitted []domain.Order
	Failed    []SupplierFailure
}

// Composer splits a cart into one order per supplier and submits each independently
type Composer struct {
	remote    remote.Client
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewComposer(client remote.Client, publisher events.Publisher, logger *zap.Logger) *Composer {
	return &Composer{
		remote:    client,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Compose groups the lines by the supplier owning each batch, in supplier id order
func (c *Composer) Compose(adminRestaurantID int64, items []domain.OrderBatchItem) []domain.Order {
	groups := make(map[int64][]domain.OrderBatchItem)
	for _, item := range items {
		supplierID := item.Batch.UserID
		groups[supplierID] = append(groups[supplierID], item)
	}

	supplierIDs := make([]int64, 0, len(groups))
	for id := range groups {
		supplierIDs = append(supplierIDs, id)
	}
	sort.Slice(supplierIDs, func(i, j int) bool { return supplierIDs[i] < supplierIDs[j] })

	now := c.now()
	requestedDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	orders := make([]domain.Order, 0, len(groups))
	for _, supplierID := range supplierIDs {
		orders = append(orders, *domain.NewOrder(adminRestaurantID, supplierID, requestedDate, groups[supplierID]))
	}
	return orders
}

// Submit creates one backend order per supplier. Submission is best effort:
// lines of suppliers whose order was created leave the cart, the rest stay.
func (c *Composer) Submit(ctx context.Context, cart *Cart, adminRestaurantID int64) (*SubmitResult, error) {
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	result := &SubmitResult{
		Submitted: make([]domain.Order, 0),
		Failed:    make([]SupplierFailure, 0),
	}
	submittedBatches := make(map[string]bool)

	for _, order := range c.Compose(adminRestaurantID, items) {
		created, err := c.remote.CreateOrder(ctx, order)
		if err != nil {
			c.logger.Warn("Supplier order submission failed",
				zap.Int64("admin_restaurant_id", adminRestaurantID),
				zap.Int64("supplier_id", order.SupplierID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, SupplierFailure{SupplierID: order.SupplierID, Order: order, Err: err})
			events.Emit(ctx, c.publisher, c.logger, events.OrderSubmissionFailed{
				AdminRestaurantID: adminRestaurantID,
				SupplierID:        order.SupplierID,
				Reason:            err.Error(),
				OccurredAt:        c.now(),
			})
			continue
		}

		if created.Items == nil {
			created.Items = order.Items
		}
		result.Submitted = append(result.Submitted, *created)
		for _, item := range order.Items {
			submittedBatches[item.BatchID] = true
		}

		c.logger.Info("Supplier order submitted",
			zap.Int64("order_id", created.ID),
			zap.Int64("supplier_id", order.SupplierID),
			zap.Int("items", order.RequestedProductsCount),
			zap.String("total", order.TotalPrice.StringFixed(2)),
		)
		events.Emit(ctx, c.publisher, c.logger, events.OrderSubmitted{
			OrderID:           created.ID,
			AdminRestaurantID: adminRestaurantID,
			SupplierID:        order.SupplierID,
			ItemCount:         order.RequestedProductsCount,
			TotalPrice:        order.TotalPrice.String(),
			OccurredAt:        c.now(),
		})
	}

	cart.removeBatches(submittedBatches)

	switch {
	case len(result.Failed) == 0:
		return result, nil
	case len(result.Submitted) == 0:
		return result, fmt.Errorf("%w: %d supplier(s) failed", ErrSubmissionFailed, len(result.Failed))
	default:
		return result, fmt.Errorf("%w: %d submitted, %d failed", ErrPartialSubmission, len(result.Submitted), len(result.Failed))
	}
}
