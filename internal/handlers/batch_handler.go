package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"restock-sync/internal/domain"
	"restock-sync/internal/repository"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BatchService is the batch side of the reconciler used by the API
type BatchService interface {
	FetchBatchesOrCached(ctx context.Context, userID int64) ([]domain.Batch, bool)
	ListExpiring(ctx context.Context, userID int64, window time.Duration) ([]domain.Batch, bool)
	CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	UpdateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	DeleteBatch(ctx context.Context, userID int64, id string) error
	Get(ctx context.Context, userID int64, id string) (*domain.Batch, error)
}

// CustomSupplyService is the custom supply catalog used by the API
type CustomSupplyService interface {
	List(ctx context.Context, userID int64) ([]domain.CustomSupply, bool)
	Get(id int64) (domain.CustomSupply, bool)
	Create(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error)
	Update(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error)
	Delete(ctx context.Context, userID, id int64) repository.DeleteOutcome
}

const defaultExpiringDays = 7

type BatchHandler struct {
	logger         *zap.Logger
	batches        BatchService
	customSupplies CustomSupplyService
}

func NewBatchHandler(logger *zap.Logger, batches BatchService, customSupplies CustomSupplyService) *BatchHandler {
	return &BatchHandler{
		logger:         logger,
		batches:        batches,
		customSupplies: customSupplies,
	}
}

// ListBatches handles GET /api/v1/batches
// @Summary      List the caller's batches
// @Description  Merges the backend list with the offline store, backend values winning on the same id.
// @Description  When the backend is unreachable the offline copy is returned with stale=true.
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  BatchListResponse
// @Failure      401  {object}  stderrors.StandardError
// @Router       /batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, stale := h.batches.FetchBatchesOrCached(backendContext(c), middleware.GetUserID(c))
	c.JSON(http.StatusOK, toBatchListResponse(batches, stale))
}

// ListExpiring handles GET /api/v1/batches/expiring
// @Summary      List batches expiring soon
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        days  query     int  false  "Window in days (default 7)"
// @Success      200   {object}  BatchListResponse
// @Failure      400   {object}  stderrors.StandardError
// @Router       /batches/expiring [get]
func (h *BatchHandler) ListExpiring(c *gin.Context) {
	days := defaultExpiringDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			fail(c, stderrors.NewValidationError("days must be a non-negative integer", "days"))
			return
		}
		days = parsed
	}

	batches, stale := h.batches.ListExpiring(backendContext(c), middleware.GetUserID(c), time.Duration(days)*24*time.Hour)
	c.JSON(http.StatusOK, toBatchListResponse(batches, stale))
}

// CreateBatch handles POST /api/v1/batches
// @Summary      Create a batch
// @Description  On success the backend copy is cached offline. When the backend call fails the
// @Description  configured write policy decides between an error and a local-only record (id prefixed "local-").
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string        false  "Request ID for idempotency"
// @Param        request       body      BatchRequest  true   "Batch"
// @Success      201           {object}  BatchResponse
// @Failure      400           {object}  stderrors.StandardError
// @Failure      404           {object}  stderrors.StandardError  "Custom supply not found"
// @Failure      422           {object}  stderrors.StandardError  "Rejected by the backend"
// @Failure      502           {object}  stderrors.StandardError  "Backend unreachable"
// @Router       /batches [post]
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	batch, ok := h.bindBatch(c, "")
	if !ok {
		return
	}

	created, err := h.batches.CreateBatch(backendContext(c), batch)
	if err != nil {
		h.logger.Warn("Batch create failed", zap.Int64("custom_supply_id", batch.CustomSupply.ID), zap.Error(err))
		fail(c, err)
		return
	}

	h.logger.Info("Batch created", zap.String("batch_id", created.ID), zap.Bool("local_only", created.IsLocalOnly()))
	c.JSON(http.StatusCreated, toBatchResponse(*created))
}

// UpdateBatch handles PUT /api/v1/batches/:id
// @Summary      Update a batch
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string        true  "Batch ID"
// @Param        request  body      BatchRequest  true  "Batch"
// @Success      200      {object}  BatchResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      404      {object}  stderrors.StandardError
// @Failure      422      {object}  stderrors.StandardError
// @Failure      502      {object}  stderrors.StandardError
// @Router       /batches/{id} [put]
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	batch, ok := h.bindBatch(c, c.Param("id"))
	if !ok {
		return
	}

	updated, err := h.batches.UpdateBatch(backendContext(c), batch)
	if err != nil {
		h.logger.Warn("Batch update failed", zap.String("batch_id", batch.ID), zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(*updated))
}

// DeleteBatch handles DELETE /api/v1/batches/:id
// @Summary      Delete a batch
// @Description  The offline copy is always removed. An error only reports the backend step.
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  SuccessResponse
// @Failure      422  {object}  stderrors.StandardError
// @Failure      502  {object}  stderrors.StandardError
// @Router       /batches/{id} [delete]
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	id := c.Param("id")
	if err := h.batches.DeleteBatch(backendContext(c), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "batch deleted successfully"})
}

// bindBatch reads a BatchRequest and resolves its custom supply
func (h *BatchHandler) bindBatch(c *gin.Context, id string) (domain.Batch, bool) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid batch request", zap.Error(err))
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return domain.Batch{}, false
	}

	expiration, err := domain.ParseExpiration(req.ExpirationDate)
	if err != nil {
		fail(c, stderrors.NewValidationError("expiration_date must be formatted as YYYY-MM-DD", "expiration_date"))
		return domain.Batch{}, false
	}

	userID := middleware.GetUserID(c)
	supply, ok := resolveCustomSupply(c, h.customSupplies, userID, req.CustomSupplyID)
	if !ok {
		return domain.Batch{}, false
	}

	return domain.Batch{
		ID:             id,
		UserID:         userID,
		Stock:          req.Stock,
		ExpirationDate: expiration,
		CustomSupply:   supply,
	}, true
}

// resolveCustomSupply finds one of the caller's custom supplies, refreshing the snapshot once on a miss
func resolveCustomSupply(c *gin.Context, customSupplies CustomSupplyService, userID, id int64) (domain.CustomSupply, bool) {
	supply, ok := customSupplies.Get(id)
	if !ok {
		customSupplies.List(backendContext(c), userID)
		supply, ok = customSupplies.Get(id)
	}
	if !ok || supply.UserID != userID {
		fail(c, stderrors.NewResourceNotFound("custom supply", strconv.FormatInt(id, 10)))
		return domain.CustomSupply{}, false
	}
	return supply, true
}
