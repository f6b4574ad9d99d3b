package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restock-sync/internal/cache"
	"restock-sync/internal/domain"
	"restock-sync/internal/events"
	"restock-sync/internal/orders"
	"restock-sync/internal/remote"
	"restock-sync/internal/remote/remotetest"
	"restock-sync/internal/repository"
	"restock-sync/internal/store"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	buyerID    int64 = 42
	supplierID int64 = 10
)

var errOffline = fmt.Errorf("dial tcp: %w", remote.ErrBackendUnavailable)

type testEnv struct {
	router  *gin.Engine
	client  *remotetest.MockClient
	store   *store.MemoryBatchStore
	catalog *repository.CustomSupplyCatalog
	carts   *orders.Carts
}

func newTestEnv(t *testing.T, callerID int64, seed ...domain.CustomSupply) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	client := new(remotetest.MockClient)
	batchStore := store.NewMemoryBatchStore()
	publisher := events.NewInMemoryEventPublisher(logger)

	reconciler := repository.NewBatchReconciler(client, batchStore, publisher, repository.PolicySurface, logger)
	catalog := repository.NewCustomSupplyCatalog(client, batchStore, publisher, repository.PolicyOptimisticLocal, logger, seed)
	supplies := repository.NewSupplyRepository(client, cache.NewInMemoryCache(), time.Minute, logger)
	carts := orders.NewCarts()

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, callerID)
		c.Set(middleware.TokenContextKey, "test-token")
		c.Next()
	})
	RegisterRoutes(api, Handlers{
		Batches:        NewBatchHandler(logger, reconciler, catalog),
		CustomSupplies: NewCustomSupplyHandler(logger, catalog),
		Supplies:       NewSupplyHandler(supplies),
		Cart:           NewCartHandler(logger, carts, reconciler, orders.NewComposer(client, publisher, logger)),
		Orders:         NewOrderHandler(logger, orders.NewTracker(client, publisher, logger)),
		Monitoring:     NewMonitoringHandler(batchStore, logger),
	})

	return &testEnv{router: router, client: client, store: batchStore, catalog: catalog, carts: carts}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func milk(id, owner int64, price string) domain.CustomSupply {
	return domain.CustomSupply{
		ID:       id,
		UserID:   owner,
		SupplyID: 3,
		Supply:   &domain.Supply{ID: 3, Name: "Whole milk"},
		Unit:     domain.Unit{Name: "Liter", Abbreviation: "l"},
		Price:    decimal.RequireFromString(price),
		MinStock: 1,
		MaxStock: 50,
	}
}

func TestListBatches_BackendDownServesOfflineCopy(t *testing.T) {
	env := newTestEnv(t, supplierID)
	require.NoError(t, env.store.Upsert(context.Background(), domain.Batch{ID: "b-1", UserID: supplierID, Stock: 3, CustomSupply: milk(7, supplierID, "5")}))
	env.client.On("ListBatches", mock.Anything, supplierID).Return(nil, errOffline)

	w := env.do(http.MethodGet, "/api/v1/batches", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, float64(1), body["count"])
}

func TestCreateBatch(t *testing.T) {
	env := newTestEnv(t, supplierID, milk(7, supplierID, "5"))

	t.Run("unknown custom supply", func(t *testing.T) {
		env.client.On("ListCustomSupplies", mock.Anything, supplierID).Return([]domain.CustomSupply{milk(7, supplierID, "5")}, nil).Once()

		w := env.do(http.MethodPost, "/api/v1/batches", BatchRequest{CustomSupplyID: 99, Stock: 1})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ResourceNotFound", decode(t, w)["error"])
	})

	t.Run("bad expiration", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/batches", BatchRequest{CustomSupplyID: 7, Stock: 1, ExpirationDate: "30/11/2026"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ValidationError", decode(t, w)["error"])
	})

	t.Run("created", func(t *testing.T) {
		env.client.On("CreateBatch", mock.Anything, mock.MatchedBy(func(b domain.Batch) bool { return b.Stock == 20 })).
			Return(&domain.Batch{ID: "b-100", UserID: supplierID, Stock: 20, CustomSupply: milk(7, supplierID, "5")}, nil).Once()

		w := env.do(http.MethodPost, "/api/v1/batches", BatchRequest{CustomSupplyID: 7, Stock: 20})

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, "b-100", body["id"])
		assert.Equal(t, domain.NonPerishableDate, body["expiration_date"])
		_, err := env.store.Get(context.Background(), "b-100")
		assert.NoError(t, err)
	})

	t.Run("rejected by backend", func(t *testing.T) {
		env.client.On("CreateBatch", mock.Anything, mock.MatchedBy(func(b domain.Batch) bool { return b.Stock == 21 })).
			Return(nil, &remote.APIError{StatusCode: http.StatusBadRequest, Message: "stock above max"}).Once()

		w := env.do(http.MethodPost, "/api/v1/batches", BatchRequest{CustomSupplyID: 7, Stock: 21})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decode(t, w)
		assert.Equal(t, "BackendRejected", body["error"])
		assert.Equal(t, "stock above max", body["message"])
	})

	t.Run("accepted without entity", func(t *testing.T) {
		env.client.On("CreateBatch", mock.Anything, mock.MatchedBy(func(b domain.Batch) bool { return b.Stock == 22 })).
			Return(nil, fmt.Errorf("%w: POST /batches", remote.ErrMalformedResponse)).Once()

		w := env.do(http.MethodPost, "/api/v1/batches", BatchRequest{CustomSupplyID: 7, Stock: 22})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "BadBackendResponse", decode(t, w)["error"])
	})
}

func TestCreateCustomSupply_InvalidRangeNeverReachesBackend(t *testing.T) {
	env := newTestEnv(t, supplierID)

	w := env.do(http.MethodPost, "/api/v1/custom-supplies", CustomSupplyRequest{
		SupplyID: 3, UnitName: "Liter", Price: decimal.NewFromInt(5), MinStock: 20, MaxStock: 10,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["error"])
	env.client.AssertNotCalled(t, "CreateCustomSupply", mock.Anything, mock.Anything)
}

func TestCreateCustomSupply_OptimisticWhenBackendDown(t *testing.T) {
	env := newTestEnv(t, supplierID)
	env.client.On("CreateCustomSupply", mock.Anything, mock.Anything).Return(nil, errOffline)

	w := env.do(http.MethodPost, "/api/v1/custom-supplies", CustomSupplyRequest{
		SupplyID: 3, UnitName: "Liter", Price: decimal.NewFromInt(5), MinStock: 1, MaxStock: 10,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["local_only"])
	assert.Equal(t, "5", body["price"])
}

func TestDeleteCustomSupply_ReportsBothSteps(t *testing.T) {
	env := newTestEnv(t, supplierID, milk(7, supplierID, "5"))
	ctx := context.Background()
	require.NoError(t, env.store.Upsert(ctx, domain.Batch{ID: "b-1", UserID: supplierID, CustomSupply: milk(7, supplierID, "5")}))
	require.NoError(t, env.store.Upsert(ctx, domain.Batch{ID: "b-2", UserID: supplierID, CustomSupply: milk(7, supplierID, "5")}))
	env.client.On("DeleteCustomSupply", mock.Anything, int64(7)).Return(errOffline)

	w := env.do(http.MethodDelete, "/api/v1/custom-supplies/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["remote_deleted"])
	assert.Equal(t, float64(2), body["cascaded_batches"])
	assert.NotEmpty(t, body["warning"])
	remaining, _ := env.store.List(ctx)
	assert.Empty(t, remaining)
}

func TestListSupplies_BadCategory(t *testing.T) {
	env := newTestEnv(t, buyerID)

	w := env.do(http.MethodGet, "/api/v1/supplies?category_id=dairy", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshSupplies_NextReadHitsBackend(t *testing.T) {
	env := newTestEnv(t, buyerID)
	env.client.On("ListSupplies", mock.Anything).Return([]domain.Supply{{ID: 3, Name: "Whole milk"}}, nil).Twice()

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/supplies", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/supplies", nil).Code)
	env.client.AssertNumberOfCalls(t, "ListSupplies", 1)

	w := env.do(http.MethodPost, "/api/v1/supplies/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/supplies", nil).Code)
	env.client.AssertNumberOfCalls(t, "ListSupplies", 2)
}

func TestSyncStatus_CountsCallerBatches(t *testing.T) {
	env := newTestEnv(t, supplierID)
	ctx := context.Background()
	require.NoError(t, env.store.Upsert(ctx, domain.Batch{ID: "b-1", UserID: supplierID, Stock: 3, CustomSupply: milk(7, supplierID, "5")}))
	require.NoError(t, env.store.Upsert(ctx, domain.Batch{ID: domain.LocalBatchPrefix + "abc", UserID: supplierID, Stock: 1, CustomSupply: milk(7, supplierID, "5")}))
	require.NoError(t, env.store.Upsert(ctx, domain.Batch{ID: "b-9", UserID: 99, Stock: 2, CustomSupply: milk(8, 99, "5")}))

	w := env.do(http.MethodGet, "/api/v1/monitoring/sync", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["cached_batches"])
	assert.Equal(t, float64(1), body["pending_batches"])
	storeInfo := body["store"].(map[string]interface{})
	assert.Equal(t, "memory", storeInfo["type"])
	assert.Equal(t, true, storeInfo["connected"])
}

func TestCartFlow_PartialSubmission(t *testing.T) {
	env := newTestEnv(t, buyerID)
	env.client.On("ListBatches", mock.Anything, int64(10)).Return([]domain.Batch{
		{ID: "batch1", UserID: 10, Stock: 10, CustomSupply: milk(1, 10, "5")},
		{ID: "batch2", UserID: 10, Stock: 10, CustomSupply: milk(2, 10, "3")},
	}, nil)
	env.client.On("ListBatches", mock.Anything, int64(20)).Return([]domain.Batch{
		{ID: "batch3", UserID: 20, Stock: 10, CustomSupply: milk(3, 20, "7")},
	}, nil)

	for _, line := range []CartItemRequest{
		{BatchID: "batch1", SupplierID: 10, Quantity: 2},
		{BatchID: "batch2", SupplierID: 10, Quantity: 1},
		{BatchID: "batch3", SupplierID: 20, Quantity: 1},
	} {
		w := env.do(http.MethodPost, "/api/v1/cart/items", line)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	cart := decode(t, env.do(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, "20", cart["total"])
	assert.Equal(t, float64(3), cart["count"])

	env.client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 10 })).
		Return(&domain.Order{ID: 501, SupplierID: 10, AdminRestaurantID: buyerID, TotalPrice: decimal.NewFromInt(13), RequestedProductsCount: 2, State: domain.OrderStateOnHold, Situation: domain.OrderSituationPending}, nil)
	env.client.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o domain.Order) bool { return o.SupplierID == 20 })).
		Return(nil, errOffline)

	w := env.do(http.MethodPost, "/api/v1/cart/submit", nil)

	assert.Equal(t, http.StatusMultiStatus, w.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Submitted, 1)
	assert.Equal(t, int64(501), resp.Submitted[0].ID)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, int64(20), resp.Failed[0].SupplierID)
	assert.True(t, decimal.NewFromInt(7).Equal(resp.Failed[0].Total))
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "batch3", resp.Cart.Items[0].BatchID)
}

func TestCartSubmit_Empty(t *testing.T) {
	env := newTestEnv(t, buyerID)

	w := env.do(http.MethodPost, "/api/v1/cart/submit", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EmptyCart", decode(t, w)["error"])
	env.client.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCartItems_UpdateAndRemove(t *testing.T) {
	env := newTestEnv(t, buyerID)
	_, err := env.carts.For(buyerID).AddItem(domain.Batch{ID: "batch1", UserID: 10, Stock: 5, CustomSupply: milk(1, 10, "5")}, 1)
	require.NoError(t, err)

	w := env.do(http.MethodPut, "/api/v1/cart/items/batch1", UpdateQuantityRequest{Quantity: 4})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20", decode(t, w)["total"])

	w = env.do(http.MethodPut, "/api/v1/cart/items/batch1", UpdateQuantityRequest{Quantity: 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/v1/cart/items/batch1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/api/v1/cart/items/batch1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceState_Backwards(t *testing.T) {
	env := newTestEnv(t, supplierID)
	env.client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderStateDelivered}, nil)

	w := env.do(http.MethodPut, "/api/v1/orders/7/state", StateTransitionRequest{State: "ON_HOLD"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", decode(t, w)["error"])
	env.client.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything)
}

func TestAdvanceState_Forward(t *testing.T) {
	env := newTestEnv(t, supplierID)
	env.client.On("GetOrder", mock.Anything, int64(7)).Return(&domain.Order{ID: 7, State: domain.OrderStateOnHold, Situation: domain.OrderSituationApproved}, nil)
	env.client.On("UpdateOrder", mock.Anything, mock.Anything).Return(&domain.Order{ID: 7, State: domain.OrderStatePreparing, Situation: domain.OrderSituationApproved}, nil)

	w := env.do(http.MethodPut, "/api/v1/orders/7/state", StateTransitionRequest{State: "PREPARING"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PREPARING", decode(t, w)["state"])
}

func TestListSupplierOrders_NeverFails(t *testing.T) {
	env := newTestEnv(t, supplierID)
	env.client.On("ListOrdersBySupplier", mock.Anything, supplierID).Return(nil, errOffline)

	w := env.do(http.MethodGet, "/api/v1/orders/supplier", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, []interface{}{}, body["orders"])
}
