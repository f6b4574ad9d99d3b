package handlers

import (
	"context"
	"net/http"

	"restock-sync/internal/domain"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderService interface {
	ListForBuyer(ctx context.Context, adminRestaurantID int64) ([]domain.Order, bool)
	ListForSupplier(ctx context.Context, supplierID int64) ([]domain.Order, bool)
	Advance(ctx context.Context, orderID int64, next domain.OrderState) (*domain.Order, error)
	RecordSupplierResponse(ctx context.Context, orderID int64, acceptedBatchIDs []string) (*domain.Order, error)
}

type OrderHandler struct {
	logger *zap.Logger
	orders OrderService
}

func NewOrderHandler(logger *zap.Logger, orders OrderService) *OrderHandler {
	return &OrderHandler{logger: logger, orders: orders}
}

// ListBuyerOrders handles GET /api/v1/orders
// @Summary      List orders placed by the caller's restaurant
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderListResponse
// @Router       /orders [get]
func (h *OrderHandler) ListBuyerOrders(c *gin.Context) {
	list, stale := h.orders.ListForBuyer(backendContext(c), middleware.GetUserID(c))
	out := toOrderResponses(list)
	c.JSON(http.StatusOK, OrderListResponse{Orders: out, Count: len(out), Stale: stale})
}

// ListSupplierOrders handles GET /api/v1/orders/supplier
// @Summary      List orders addressed to the caller as supplier
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  OrderListResponse
// @Router       /orders/supplier [get]
func (h *OrderHandler) ListSupplierOrders(c *gin.Context) {
	list, stale := h.orders.ListForSupplier(backendContext(c), middleware.GetUserID(c))
	out := toOrderResponses(list)
	c.JSON(http.StatusOK, OrderListResponse{Orders: out, Count: len(out), Stale: stale})
}

// AdvanceState handles PUT /api/v1/orders/:id/state
// @Summary      Move an order one step forward
// @Description  Only ON_HOLD -> PREPARING -> DELIVERED is allowed, one step at a time.
// @Description  Requesting the current state is a no-op.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                     true  "Order ID"
// @Param        request  body      StateTransitionRequest  true  "Target state"
// @Success      200      {object}  OrderResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      404      {object}  stderrors.StandardError
// @Failure      409      {object}  stderrors.StandardError  "Transition not allowed"
// @Router       /orders/{id}/state [put]
func (h *OrderHandler) AdvanceState(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req StateTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	order, err := h.orders.Advance(backendContext(c), id, domain.OrderState(req.State))
	if err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Order state updated", zap.Int64("order_id", id), zap.String("state", string(order.State)))
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// RecordResponse handles POST /api/v1/orders/:id/response
// @Summary      Record which lines the supplier accepts
// @Description  Only while the order is ON_HOLD. Accepting any line approves the order;
// @Description  partially_accepted is derived from the accepted flags.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Order ID"
// @Param        request  body      SupplierResponseRequest  true  "Accepted lines"
// @Success      200      {object}  OrderResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      409      {object}  stderrors.StandardError
// @Router       /orders/{id}/response [post]
func (h *OrderHandler) RecordResponse(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req SupplierResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	order, err := h.orders.RecordSupplierResponse(backendContext(c), id, req.AcceptedBatchIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}
