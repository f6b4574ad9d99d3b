package handlers

import (
	"context"
	"errors"
	"net/http"

	"restock-sync/internal/orders"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderSubmitter turns a cart into supplier orders
type OrderSubmitter interface {
	Submit(ctx context.Context, cart *orders.Cart, adminRestaurantID int64) (*orders.SubmitResult, error)
}

type CartHandler struct {
	logger    *zap.Logger
	carts     *orders.Carts
	batches   BatchService
	submitter OrderSubmitter
}

func NewCartHandler(logger *zap.Logger, carts *orders.Carts, batches BatchService, submitter OrderSubmitter) *CartHandler {
	return &CartHandler{
		logger:    logger,
		carts:     carts,
		batches:   batches,
		submitter: submitter,
	}
}

// GetCart handles GET /api/v1/cart
// @Summary      Show the caller's cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CartResponse
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(h.carts.For(middleware.GetUserID(c))))
}

// AddItem handles POST /api/v1/cart/items
// @Summary      Add a supplier batch to the cart
// @Description  Adding a batch already in the cart increases its quantity.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CartItemRequest  true  "Cart line"
// @Success      200      {object}  CartResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      404      {object}  stderrors.StandardError
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	batch, err := h.batches.Get(backendContext(c), req.SupplierID, req.BatchID)
	if err != nil {
		fail(c, err)
		return
	}

	cart := h.carts.For(middleware.GetUserID(c))
	if _, err := cart.AddItem(*batch, req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// UpdateItem handles PUT /api/v1/cart/items/:batchId
// @Summary      Change the quantity of a cart line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        batchId  path      string                 true  "Batch ID"
// @Param        request  body      UpdateQuantityRequest  true  "Quantity"
// @Success      200      {object}  CartResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      404      {object}  stderrors.StandardError
// @Router       /cart/items/{batchId} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return
	}

	cart := h.carts.For(middleware.GetUserID(c))
	if _, err := cart.UpdateQuantity(c.Param("batchId"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/:batchId
// @Summary      Remove a cart line
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        batchId  path      string  true  "Batch ID"
// @Success      200      {object}  CartResponse
// @Failure      404      {object}  stderrors.StandardError
// @Router       /cart/items/{batchId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart := h.carts.For(middleware.GetUserID(c))
	if !cart.RemoveItem(c.Param("batchId")) {
		fail(c, orders.ErrItemNotInCart)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// Submit handles POST /api/v1/cart/submit
// @Summary      Submit the cart as one order per supplier
// @Description  Every supplier order is sent independently. 201 means all were created and the cart is empty.
// @Description  207 means some failed: their lines stay in the cart and can be submitted again.
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string  false  "Request ID for idempotency"
// @Success      201           {object}  SubmitResponse
// @Success      207           {object}  SubmitResponse
// @Failure      400           {object}  stderrors.StandardError  "Empty cart"
// @Failure      422           {object}  stderrors.StandardError
// @Failure      502           {object}  stderrors.StandardError
// @Router       /cart/submit [post]
func (h *CartHandler) Submit(c *gin.Context) {
	adminRestaurantID := middleware.GetUserID(c)
	cart := h.carts.For(adminRestaurantID)

	result, err := h.submitter.Submit(backendContext(c), cart, adminRestaurantID)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, h.submitResponse(result, cart))
	case errors.Is(err, orders.ErrPartialSubmission):
		h.logger.Warn("Cart partially submitted",
			zap.Int64("admin_restaurant_id", adminRestaurantID),
			zap.Int("submitted", len(result.Submitted)),
			zap.Int("failed", len(result.Failed)),
		)
		c.JSON(http.StatusMultiStatus, h.submitResponse(result, cart))
	case errors.Is(err, orders.ErrSubmissionFailed) && len(result.Failed) > 0:
		fail(c, result.Failed[0].Err)
	default:
		fail(c, err)
	}
}

func (h *CartHandler) submitResponse(result *orders.SubmitResult, cart *orders.Cart) SubmitResponse {
	failed := make([]FailedSupplierResponse, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, FailedSupplierResponse{
			SupplierID: f.SupplierID,
			ItemCount:  f.Order.RequestedProductsCount,
			Total:      f.Order.TotalPrice,
			Error:      f.Err.Error(),
		})
	}
	return SubmitResponse{
		Submitted: toOrderResponses(result.Submitted),
		Failed:    failed,
		Cart:      toCartResponse(cart),
	}
}
