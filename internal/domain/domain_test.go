package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatch(id string, supplierID int64, price string) Batch {
	return Batch{
		ID:     id,
		UserID: supplierID,
		Stock:  10,
		CustomSupply: CustomSupply{
			ID:       1,
			Price:    decimal.RequireFromString(price),
			MinStock: 1,
			MaxStock: 5,
		},
	}
}

func TestCustomSupplyValidate_Success(t *testing.T) {
	supply := CustomSupply{MinStock: 2, MaxStock: 2, Price: decimal.NewFromInt(3)}

	assert.NoError(t, supply.Validate())
}

func TestCustomSupplyValidate_MinAboveMax(t *testing.T) {
	supply := CustomSupply{MinStock: 10, MaxStock: 5}

	err := supply.Validate()

	assert.Equal(t, ErrInvalidStockRange, err)
}

func TestCustomSupplyValidate_NegativeValues(t *testing.T) {
	assert.Equal(t, ErrNegativeStock, CustomSupply{MinStock: -1, MaxStock: 5}.Validate())
	assert.Equal(t, ErrNegativeStock, CustomSupply{MinStock: 0, MaxStock: -5}.Validate())
	assert.Equal(t, ErrNegativePrice, CustomSupply{Price: decimal.NewFromInt(-1)}.Validate())
}

func TestBatch_NonPerishable(t *testing.T) {
	sentinel, err := ParseExpiration(NonPerishableDate)
	require.NoError(t, err)
	expiring, err := ParseExpiration("2026-10-20")
	require.NoError(t, err)

	assert.True(t, Batch{}.NonPerishable())
	assert.True(t, Batch{ExpirationDate: sentinel}.NonPerishable())
	assert.False(t, Batch{ExpirationDate: expiring}.NonPerishable())
	assert.Equal(t, NonPerishableDate, FormatExpiration(nil))
	assert.Equal(t, "2026-10-20", FormatExpiration(expiring))
}

func TestBatch_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	soon := now.Add(48 * time.Hour)
	later := now.Add(30 * 24 * time.Hour)

	assert.True(t, Batch{ExpirationDate: &soon}.ExpiresWithin(now, 72*time.Hour))
	assert.False(t, Batch{ExpirationDate: &later}.ExpiresWithin(now, 72*time.Hour))
	assert.False(t, Batch{}.ExpiresWithin(now, 72*time.Hour))
}

func TestBatch_ValidateAndLocalOnly(t *testing.T) {
	assert.Equal(t, ErrNegativeStock, Batch{Stock: -1}.Validate())
	assert.True(t, Batch{ID: LocalBatchPrefix + "abc"}.IsLocalOnly())
	assert.True(t, Batch{}.IsLocalOnly())
	assert.False(t, Batch{ID: "42"}.IsLocalOnly())
}

func TestNewOrder_ComputesTotals(t *testing.T) {
	items := []OrderBatchItem{
		{BatchID: "b1", Quantity: 2, Batch: newTestBatch("b1", 10, "5")},
		{BatchID: "b2", Quantity: 1, Batch: newTestBatch("b2", 10, "3")},
	}
	requested := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	order := NewOrder(7, 10, requested, items)

	assert.Equal(t, int64(7), order.AdminRestaurantID)
	assert.Equal(t, int64(10), order.SupplierID)
	assert.Equal(t, 2, order.RequestedProductsCount)
	assert.True(t, decimal.NewFromInt(13).Equal(order.TotalPrice))
	assert.Equal(t, OrderStateOnHold, order.State)
	assert.Equal(t, OrderSituationPending, order.Situation)
	assert.False(t, order.PartiallyAccepted)
}

func TestOrderState_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from     OrderState
		to       OrderState
		expected bool
	}{
		{OrderStateOnHold, OrderStatePreparing, true},
		{OrderStatePreparing, OrderStateDelivered, true},
		{OrderStateOnHold, OrderStateDelivered, false},
		{OrderStateDelivered, OrderStateOnHold, false},
		{OrderStatePreparing, OrderStateOnHold, false},
		{OrderStateDelivered, OrderStateDelivered, false},
		{OrderState("RETURNED"), OrderStateDelivered, false},
		{OrderStateOnHold, OrderState("CANCELLED"), false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestOrderTransition_DeliveredBackToOnHoldRejected(t *testing.T) {
	order := &Order{State: OrderStateDelivered}

	err := order.Transition(OrderStateOnHold)

	assert.Equal(t, ErrInvalidTransition, err)
	assert.Equal(t, OrderStateDelivered, order.State)
}

func TestOrderTransition_ForwardAndNoop(t *testing.T) {
	order := &Order{State: OrderStateOnHold}

	require.NoError(t, order.Transition(OrderStatePreparing))
	require.NoError(t, order.Transition(OrderStatePreparing))
	require.NoError(t, order.Transition(OrderStateDelivered))

	assert.Equal(t, OrderStateDelivered, order.State)
	assert.True(t, order.State.IsTerminal())
}

func TestOrderSituation_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderSituationPending.CanTransitionTo(OrderSituationApproved))
	assert.False(t, OrderSituationApproved.CanTransitionTo(OrderSituationPending))
	assert.False(t, OrderSituation("REJECTED").CanTransitionTo(OrderSituationApproved))
}

func TestApplySupplierResponse_Partial(t *testing.T) {
	order := NewOrder(1, 10, time.Now(), []OrderBatchItem{
		{BatchID: "b1", Quantity: 1, Batch: newTestBatch("b1", 10, "1")},
		{BatchID: "b2", Quantity: 1, Batch: newTestBatch("b2", 10, "1")},
	})

	err := order.ApplySupplierResponse([]string{"b1"})

	require.NoError(t, err)
	assert.True(t, order.Items[0].Accepted)
	assert.False(t, order.Items[1].Accepted)
	assert.True(t, order.PartiallyAccepted)
	assert.Equal(t, OrderSituationApproved, order.Situation)
	assert.Equal(t, OrderStateOnHold, order.State)
}

func TestApplySupplierResponse_AllOrNone(t *testing.T) {
	order := NewOrder(1, 10, time.Now(), []OrderBatchItem{
		{BatchID: "b1", Quantity: 1, Batch: newTestBatch("b1", 10, "1")},
		{BatchID: "b2", Quantity: 1, Batch: newTestBatch("b2", 10, "1")},
	})

	require.NoError(t, order.ApplySupplierResponse(nil))
	assert.False(t, order.PartiallyAccepted)
	assert.Equal(t, OrderSituationPending, order.Situation)

	require.NoError(t, order.ApplySupplierResponse([]string{"b1", "b2"}))
	assert.False(t, order.PartiallyAccepted)
	assert.Equal(t, OrderSituationApproved, order.Situation)
}

func TestApplySupplierResponse_Errors(t *testing.T) {
	order := NewOrder(1, 10, time.Now(), []OrderBatchItem{
		{BatchID: "b1", Quantity: 1, Batch: newTestBatch("b1", 10, "1")},
	})

	assert.Equal(t, ErrUnknownOrderItem, order.ApplySupplierResponse([]string{"zzz"}))

	order.State = OrderStatePreparing
	assert.Equal(t, ErrResponseAfterStart, order.ApplySupplierResponse([]string{"b1"}))
}
