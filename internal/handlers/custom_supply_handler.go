package handlers

import (
	"net/http"
	"strconv"

	"restock-sync/internal/domain"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomSupplyHandler struct {
	logger         *zap.Logger
	customSupplies CustomSupplyService
}

func NewCustomSupplyHandler(logger *zap.Logger, customSupplies CustomSupplyService) *CustomSupplyHandler {
	return &CustomSupplyHandler{logger: logger, customSupplies: customSupplies}
}

// ListCustomSupplies handles GET /api/v1/custom-supplies
// @Summary      List the caller's custom supplies
// @Description  Always answers 200. When the backend fails the last known list is returned with stale=true.
// @Tags         custom-supplies
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CustomSupplyListResponse
// @Router       /custom-supplies [get]
func (h *CustomSupplyHandler) ListCustomSupplies(c *gin.Context) {
	supplies, stale := h.customSupplies.List(backendContext(c), middleware.GetUserID(c))

	out := make([]CustomSupplyResponse, 0, len(supplies))
	for _, s := range supplies {
		out = append(out, toCustomSupplyResponse(s))
	}
	c.JSON(http.StatusOK, CustomSupplyListResponse{CustomSupplies: out, Count: len(out), Stale: stale})
}

// CreateCustomSupply handles POST /api/v1/custom-supplies
// @Summary      Create a custom supply
// @Description  min_stock must not exceed max_stock. With the optimistic-local policy a backend failure
// @Description  still answers 201 with a local-only record (non-positive id).
// @Tags         custom-supplies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string               false  "Request ID for idempotency"
// @Param        request       body      CustomSupplyRequest  true   "Custom supply"
// @Success      201           {object}  CustomSupplyResponse
// @Failure      400           {object}  stderrors.StandardError
// @Failure      422           {object}  stderrors.StandardError
// @Failure      502           {object}  stderrors.StandardError
// @Router       /custom-supplies [post]
func (h *CustomSupplyHandler) CreateCustomSupply(c *gin.Context) {
	supply, ok := h.bind(c, 0)
	if !ok {
		return
	}

	created, err := h.customSupplies.Create(backendContext(c), supply)
	if err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Custom supply created", zap.Int64("custom_supply_id", created.ID), zap.Bool("local_only", created.IsLocalOnly()))
	c.JSON(http.StatusCreated, toCustomSupplyResponse(*created))
}

// UpdateCustomSupply handles PUT /api/v1/custom-supplies/:id
// @Summary      Update a custom supply
// @Tags         custom-supplies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Custom supply ID"
// @Param        request  body      CustomSupplyRequest  true  "Custom supply"
// @Success      200      {object}  CustomSupplyResponse
// @Failure      400      {object}  stderrors.StandardError
// @Failure      422      {object}  stderrors.StandardError
// @Failure      502      {object}  stderrors.StandardError
// @Router       /custom-supplies/{id} [put]
func (h *CustomSupplyHandler) UpdateCustomSupply(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	supply, ok := h.bind(c, id)
	if !ok {
		return
	}

	updated, err := h.customSupplies.Update(backendContext(c), supply)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomSupplyResponse(*updated))
}

// DeleteCustomSupply handles DELETE /api/v1/custom-supplies/:id
// @Summary      Delete a custom supply and its cached batches
// @Description  The local cleanup always runs. remote_deleted=false with a warning means the backend
// @Description  still has the record and the delete should be retried.
// @Tags         custom-supplies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Custom supply ID"
// @Success      200  {object}  DeleteCustomSupplyResponse
// @Failure      400  {object}  stderrors.StandardError
// @Router       /custom-supplies/{id} [delete]
func (h *CustomSupplyHandler) DeleteCustomSupply(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	outcome := h.customSupplies.Delete(backendContext(c), middleware.GetUserID(c), id)
	if outcome.LocalErr != nil {
		fail(c, stderrors.NewDatabaseError("delete cached batches", outcome.LocalErr))
		return
	}

	resp := DeleteCustomSupplyResponse{
		ID:              id,
		RemoteDeleted:   outcome.RemoteDeleted,
		CascadedBatches: outcome.CascadedBatches,
	}
	if outcome.RemoteErr != nil {
		resp.Warning = "backend delete failed, removed locally: " + outcome.RemoteErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CustomSupplyHandler) bind(c *gin.Context, id int64) (domain.CustomSupply, bool) {
	var req CustomSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid custom supply request", zap.Error(err))
		fail(c, stderrors.NewInvalidRequest("invalid request body", err.Error()))
		return domain.CustomSupply{}, false
	}

	return domain.CustomSupply{
		ID:           id,
		UserID:       middleware.GetUserID(c),
		SupplyID:     req.SupplyID,
		Unit:         domain.Unit{Name: req.UnitName, Abbreviation: req.UnitAbbreviation},
		Price:        req.Price,
		CurrencyCode: req.CurrencyCode,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		Description:  req.Description,
	}, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		fail(c, stderrors.NewValidationError(name+" must be an integer", name))
		return 0, false
	}
	return value, true
}
