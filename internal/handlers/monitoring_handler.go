package handlers

import (
	"context"
	"net/http"

	"restock-sync/internal/store"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type MonitoringHandler struct {
	store  store.BatchStore
	logger *zap.Logger
}

func NewMonitoringHandler(batchStore store.BatchStore, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		store:  batchStore,
		logger: logger,
	}
}

// GetSyncStatus godoc
// @Summary      Offline store status
// @Description  Reports whether the local batch store is reachable and how many of the caller's batches have not reached the backend yet
// @Tags         monitoring
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SyncStatusResponse
// @Failure      500  {object}  stderrors.StandardError
// @Router       /monitoring/sync [get]
func (h *MonitoringHandler) GetSyncStatus(c *gin.Context) {
	ctx := c.Request.Context()
	response := SyncStatusResponse{Status: "ok"}
	response.Store.Type = "memory"
	response.Store.Connected = true

	if p, ok := h.store.(pinger); ok {
		response.Store.Type = "sqlite"
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Batch store ping failed", zap.Error(err))
			response.Status = "degraded"
			response.Store.Connected = false
			c.JSON(http.StatusOK, response)
			return
		}
	}

	batches, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("Failed to read batch store", zap.Error(err))
		fail(c, stderrors.NewDatabaseError("list batches", err))
		return
	}

	userID := middleware.GetUserID(c)
	for _, batch := range batches {
		if batch.UserID != userID {
			continue
		}
		response.CachedBatches++
		if batch.IsLocalOnly() {
			response.PendingBatches++
		}
	}

	c.JSON(http.StatusOK, response)
}
