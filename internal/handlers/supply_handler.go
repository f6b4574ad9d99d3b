package handlers

import (
	"context"
	"net/http"
	"strconv"

	"restock-sync/internal/domain"
	stderrors "restock-sync/pkg/errors"

	"github.com/gin-gonic/gin"
)

type SupplyService interface {
	ListSupplies(ctx context.Context, categoryID int64) ([]domain.Supply, bool)
	ListCategories(ctx context.Context) ([]domain.Category, bool)
	Invalidate(ctx context.Context) error
}

type SupplyHandler struct {
	supplies SupplyService
}

func NewSupplyHandler(supplies SupplyService) *SupplyHandler {
	return &SupplyHandler{supplies: supplies}
}

// ListSupplies handles GET /api/v1/supplies
// @Summary      List catalog supplies
// @Tags         supplies
// @Produce      json
// @Security     BearerAuth
// @Param        category_id  query     int  false  "Only supplies of this category"
// @Success      200          {object}  SupplyListResponse
// @Failure      400          {object}  stderrors.StandardError
// @Router       /supplies [get]
func (h *SupplyHandler) ListSupplies(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, stderrors.NewValidationError("category_id must be an integer", "category_id"))
			return
		}
		categoryID = parsed
	}

	supplies, stale := h.supplies.ListSupplies(backendContext(c), categoryID)
	out := toSupplyResponses(supplies)
	c.JSON(http.StatusOK, SupplyListResponse{Supplies: out, Count: len(out), Stale: stale})
}

// ListCategories handles GET /api/v1/supplies/categories
// @Summary      List supply categories
// @Tags         supplies
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CategoryListResponse
// @Router       /supplies/categories [get]
func (h *SupplyHandler) ListCategories(c *gin.Context) {
	categories, stale := h.supplies.ListCategories(backendContext(c))
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, *toCategoryResponse(&categories[i]))
	}
	c.JSON(http.StatusOK, CategoryListResponse{Categories: out, Count: len(out), Stale: stale})
}

// RefreshSupplies handles POST /api/v1/supplies/refresh
// @Summary      Drop the cached supply catalog
// @Description  The next read goes to the backend
// @Tags         supplies
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SuccessResponse
// @Failure      500  {object}  stderrors.StandardError
// @Router       /supplies/refresh [post]
func (h *SupplyHandler) RefreshSupplies(c *gin.Context) {
	if err := h.supplies.Invalidate(c.Request.Context()); err != nil {
		fail(c, stderrors.NewInternalError("failed to clear supply cache", err))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "supply cache cleared"})
}
