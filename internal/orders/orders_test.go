package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/remote"
	"restock-sync/internal/remote/remotetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func supplierBatch(id string, supplierID int64, price int64, stock int) domain.Batch {
	return domain.Batch{
		ID:     id,
		UserID: supplierID,
		Stock:  stock,
		CustomSupply: domain.CustomSupply{
			ID:       supplierID * 100,
			UserID:   supplierID,
			Price:    decimal.NewFromInt(price),
			MaxStock: 100,
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC)
}

func newComposer(client remote.Client) (*Composer, *events.InMemoryEventPublisher) {
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())
	c := NewComposer(client, publisher, zap.NewNop())
	c.now = fixedClock
	return c, publisher
}

func threeLineCart(t *testing.T) *Cart {
	t.Helper()
	cart := NewCart()
	_, err := cart.AddItem(supplierBatch("batch1", 10, 5, 10), 2)
	require.NoError(t, err)
	_, err = cart.AddItem(supplierBatch("batch2", 10, 3, 10), 1)
	require.NoError(t, err)
	_, err = cart.AddItem(supplierBatch("batch3", 20, 7, 10), 1)
	require.NoError(t, err)
	return cart
}

func TestCart_AddUpdateRemove(t *testing.T) {
	cart := NewCart()
	batch := supplierBatch("b-1", 10, 5, 6)

	_, err := cart.AddItem(batch, 2)
	require.NoError(t, err)
	line, err := cart.AddItem(batch, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 1, cart.Len())

	_, err = cart.AddItem(batch, 2)
	assert.ErrorIs(t, err, ErrExceedsStock)

	_, err = cart.AddItem(batch, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	line, err = cart.UpdateQuantity("b-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, decimal.NewFromInt(5).Equal(cart.Total()))

	_, err = cart.UpdateQuantity("missing", 1)
	assert.ErrorIs(t, err, ErrItemNotInCart)

	assert.True(t, cart.RemoveItem("b-1"))
	assert.False(t, cart.RemoveItem("b-1"))
	assert.Equal(t, 0, cart.Len())
}

func TestCart_Total(t *testing.T) {
	cart := threeLineCart(t)

	assert.True(t, decimal.NewFromInt(20).Equal(cart.Total()), "got %s", cart.Total())
}

func TestCarts_OnePerBuyer(t *testing.T) {
	carts := NewCarts()
	_, err := carts.For(1).AddItem(supplierBatch("b-1", 10, 5, 6), 1)
	require.NoError(t, err)

	assert.Same(t, carts.For(1), carts.For(1))
	assert.Equal(t, 1, carts.For(1).Len())
	assert.Equal(t, 0, carts.For(2).Len())
}

func TestCompose_OneOrderPerSupplier(t *testing.T) {
	c, _ := newComposer(new(remotetest.MockClient))

	orders := c.Compose(1, threeLineCart(t).Items())

	require.Len(t, orders, 2)
	assert.Equal(t, int64(10), orders[0].SupplierID)
	assert.Equal(t, 2, orders[0].RequestedProductsCount)
	assert.True(t, decimal.NewFromInt(13).Equal(orders[0].TotalPrice), "got %s", orders[0].TotalPrice)
	assert.Equal(t, int64(20), orders[1].SupplierID)
	assert.Equal(t, 1, orders[1].RequestedProductsCount)
	assert.True(t, decimal.NewFromInt(7).Equal(orders[1].TotalPrice), "got %s", orders[1].TotalPrice)

	for _, order := range orders {
		assert.Equal(t, int64(1), order.AdminRestaurantID)
		assert.Equal(t, domain.OrderStateOnHold, order.State)
		assert.Equal(t, domain.OrderSituationPending, order.Situation)
		assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), order.RequestedDate)
	}
}

func TestSubmit_AllSuppliersSucceed(t *testing.T) {
	client := new(remotetest.MockClient)
	c, publisher := newComposer(client)
	cart := threeLineCart(t)

	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 10 })).
		Return(&domain.Order{ID: 501, SupplierID: 10, State: domain.OrderStateOnHold}, nil)
	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 20 })).
		Return(&domain.Order{ID: 502, SupplierID: 20, State: domain.OrderStateOnHold}, nil)

	result, err := c.Submit(context.Background(), cart, 1)

	require.NoError(t, err)
	require.Len(t, result.Submitted, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, int64(501), result.Submitted[0].ID)
	assert.Len(t, result.Submitted[0].Items, 2)
	assert.Equal(t, 0, cart.Len())
	assert.Len(t, publisher.Events(), 2)
	client.AssertNumberOfCalls(t, "CreateOrder", 2)
}

func TestSubmit_EmptyCartMakesNoCalls(t *testing.T) {
	client := new(remotetest.MockClient)
	c, publisher := newComposer(client)

	result, err := c.Submit(context.Background(), NewCart(), 1)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmptyCart)
	client.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.Events())
}

func TestSubmit_PartialFailureKeepsFailedLines(t *testing.T) {
	client := new(remotetest.MockClient)
	c, publisher := newComposer(client)
	cart := threeLineCart(t)

	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 10 })).
		Return(&domain.Order{ID: 501, SupplierID: 10}, nil)
	client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 20 })).
		Return(nil, &remote.APIError{StatusCode: 409, Message: "supplier is not accepting orders"})

	result, err := c.Submit(context.Background(), cart, 1)

	assert.ErrorIs(t, err, ErrPartialSubmission)
	require.Len(t, result.Submitted, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(20), result.Failed[0].SupplierID)
	assert.Contains(t, result.Failed[0].Err.Error(), "not accepting orders")

	remaining := cart.Items()
	require.Len(t, remaining, 1)
	assert.Equal(t, "batch3", remaining[0].BatchID)

	published := publisher.Events()
	require.Len(t, published, 2)
	assert.Equal(t, "OrderSubmitted", published[0].EventType())
	assert.Equal(t, "OrderSubmissionFailed", published[1].EventType())
}

func TestSubmit_AllFailKeepsCart(t *testing.T) {
	client := new(remotetest.MockClient)
	c, _ := newComposer(client)
	cart := threeLineCart(t)
	client.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("timeout: %w", remote.ErrBackendUnavailable))

	result, err := c.Submit(context.Background(), cart, 1)

	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Len(t, result.Failed, 2)
	assert.Equal(t, 3, cart.Len())
}

func newTracker(client remote.Client, logger *zap.Logger) (*Tracker, *events.InMemoryEventPublisher) {
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())
	return NewTracker(client, publisher, logger), publisher
}

func TestAdvance_OneStepForward(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, publisher := newTracker(client, zap.NewNop())
	client.On("GetOrder", mock.Anything, int64(7)).
		Return(&domain.Order{ID: 7, State: domain.OrderStateOnHold, Situation: domain.OrderSituationApproved}, nil)
	client.On("UpdateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool {
		return o.State == domain.OrderStatePreparing
	})).Return(&domain.Order{ID: 7, State: domain.OrderStatePreparing, Situation: domain.OrderSituationApproved}, nil)

	order, err := tracker.Advance(context.Background(), 7, domain.OrderStatePreparing)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePreparing, order.State)
	require.Len(t, publisher.Events(), 1)
	changed := publisher.Events()[0].(events.OrderStateChanged)
	assert.Equal(t, "ON_HOLD", changed.From)
	assert.Equal(t, "PREPARING", changed.To)
}

func TestAdvance_SameStateIsNoop(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, _ := newTracker(client, zap.NewNop())
	client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderStatePreparing}, nil)

	order, err := tracker.Advance(context.Background(), 7, domain.OrderStatePreparing)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePreparing, order.State)
	client.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything)
}

func TestAdvance_BackwardsIsLoggedAndRejected(t *testing.T) {
	client := new(remotetest.MockClient)
	core, logs := observer.New(zapcore.DPanicLevel)
	tracker, publisher := newTracker(client, zap.New(core))
	client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderStateDelivered}, nil)

	order, err := tracker.Advance(context.Background(), 7, domain.OrderStateOnHold)

	assert.Nil(t, order)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, logs.Len())
	client.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.Events())
}

func TestAdvance_BackwardsPanicsInDevelopment(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, _ := newTracker(client, zaptest.NewLogger(t, zaptest.WrapOptions(zap.Development())))
	client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderStateDelivered}, nil)

	assert.Panics(t, func() {
		_, _ = tracker.Advance(context.Background(), 7, domain.OrderStateOnHold)
	})
}

func TestAdvance_UnknownBackendStateIsNotTransitioned(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, _ := newTracker(client, zap.NewNop())
	client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderState("CANCELLED")}, nil)

	_, err := tracker.Advance(context.Background(), 7, domain.OrderStatePreparing)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecordSupplierResponse(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, publisher := newTracker(client, zap.NewNop())
	pending := &domain.Order{
		ID:        8,
		State:     domain.OrderStateOnHold,
		Situation: domain.OrderSituationPending,
		Items:     []domain.OrderBatchItem{{BatchID: "a", Quantity: 1}, {BatchID: "b", Quantity: 2}},
	}
	client.On("GetOrder", mock.Anything, int64(8)).Return(pending, nil)
	client.On("UpdateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool {
		return o.PartiallyAccepted && o.Situation == domain.OrderSituationApproved && o.Items[0].Accepted && !o.Items[1].Accepted
	})).Return(&domain.Order{
		ID:                8,
		State:             domain.OrderStateOnHold,
		Situation:         domain.OrderSituationApproved,
		PartiallyAccepted: true,
	}, nil)

	order, err := tracker.RecordSupplierResponse(context.Background(), 8, []string{"a"})

	require.NoError(t, err)
	assert.True(t, order.PartiallyAccepted)
	assert.Equal(t, domain.OrderSituationApproved, order.Situation)
	assert.Equal(t, domain.OrderStateOnHold, order.State)
	assert.Len(t, publisher.Events(), 1)
	client.AssertExpectations(t)
}

func TestRecordSupplierResponse_AfterPreparationStarted(t *testing.T) {
	client := new(remotetest.MockClient)
	core, logs := observer.New(zapcore.DPanicLevel)
	tracker, _ := newTracker(client, zap.New(core))
	client.On("GetOrder", mock.Anything, int64(8)).Return(&domain.Order{ID: 8, State: domain.OrderStatePreparing}, nil)

	_, err := tracker.RecordSupplierResponse(context.Background(), 8, []string{"a"})

	assert.ErrorIs(t, err, domain.ErrResponseAfterStart)
	assert.Equal(t, 1, logs.Len())
	client.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything)
}

func TestRecordSupplierResponse_AfterPreparationPanicsInDevelopment(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, _ := newTracker(client, zaptest.NewLogger(t, zaptest.WrapOptions(zap.Development())))
	client.On("GetOrder", mock.Anything, int64(8)).Return(&domain.Order{ID: 8, State: domain.OrderStateDelivered}, nil)

	assert.Panics(t, func() {
		_, _ = tracker.RecordSupplierResponse(context.Background(), 8, []string{"a"})
	})
}

func TestListForBuyer_FallsBackToSnapshot(t *testing.T) {
	client := new(remotetest.MockClient)
	tracker, _ := newTracker(client, zap.NewNop())
	client.On("ListOrdersByAdminRestaurant", mock.Anything, int64(1)).Return([]domain.Order{{ID: 1}, {ID: 2}}, nil).Once()
	client.On("ListOrdersByAdminRestaurant", mock.Anything, int64(1)).Return(nil, errors.New("connection reset")).Once()
	client.On("ListOrdersBySupplier", mock.Anything, int64(10)).Return(nil, errors.New("connection reset"))

	fresh, stale := tracker.ListForBuyer(context.Background(), 1)
	assert.False(t, stale)
	assert.Len(t, fresh, 2)

	cached, stale := tracker.ListForBuyer(context.Background(), 1)
	assert.True(t, stale)
	assert.Len(t, cached, 2)

	empty, stale := tracker.ListForSupplier(context.Background(), 10)
	assert.True(t, stale)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
