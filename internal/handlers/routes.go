package handlers

import "github.com/gin-gonic/gin"

// Handlers groups every API handler
type Handlers struct {
	Batches        *BatchHandler
	CustomSupplies *CustomSupplyHandler
	Supplies       *SupplyHandler
	Cart           *CartHandler
	Orders         *OrderHandler
	Monitoring     *MonitoringHandler
}

// RegisterRoutes mounts the protected API on group
func RegisterRoutes(group *gin.RouterGroup, h Handlers) {
	batches := group.Group("/batches")
	{
		batches.GET("", h.Batches.ListBatches)
		batches.GET("/expiring", h.Batches.ListExpiring)
		batches.POST("", h.Batches.CreateBatch)
		batches.PUT("/:id", h.Batches.UpdateBatch)
		batches.DELETE("/:id", h.Batches.DeleteBatch)
	}

	customSupplies := group.Group("/custom-supplies")
	{
		customSupplies.GET("", h.CustomSupplies.ListCustomSupplies)
		customSupplies.POST("", h.CustomSupplies.CreateCustomSupply)
		customSupplies.PUT("/:id", h.CustomSupplies.UpdateCustomSupply)
		customSupplies.DELETE("/:id", h.CustomSupplies.DeleteCustomSupply)
	}

	supplies := group.Group("/supplies")
	{
		supplies.GET("", h.Supplies.ListSupplies)
		supplies.GET("/categories", h.Supplies.ListCategories)
		supplies.POST("/refresh", h.Supplies.RefreshSupplies)
	}

	cart := group.Group("/cart")
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:batchId", h.Cart.UpdateItem)
		cart.DELETE("/items/:batchId", h.Cart.RemoveItem)
		cart.POST("/submit", h.Cart.Submit)
	}

	orders := group.Group("/orders")
	{
		orders.GET("", h.Orders.ListBuyerOrders)
		orders.GET("/supplier", h.Orders.ListSupplierOrders)
		orders.PUT("/:id/state", h.Orders.AdvanceState)
		orders.POST("/:id/response", h.Orders.RecordResponse)
	}

	group.GET("/monitoring/sync", h.Monitoring.GetSyncStatus)
}
