package handlers

import (
	"restock-sync/internal/domain"
	"restock-sync/internal/orders"

	"github.com/shopspring/decimal"
)

// SuccessResponse represents a success response
// @Description Success response with message
type SuccessResponse struct {
	Message string `json:"message" example:"batch deleted successfully"`
}

// CategoryResponse is a catalog category
type CategoryResponse struct {
	ID   int64  `json:"id" example:"1"`
	Name string `json:"name" example:"Dairy"`
}

// SupplyResponse is a catalog supply
type SupplyResponse struct {
	ID          int64             `json:"id" example:"3"`
	Name        string            `json:"name" example:"Whole milk"`
	Description string            `json:"description" example:"Pasteurized whole milk"`
	Perishable  bool              `json:"perishable" example:"true"`
	Category    *CategoryResponse `json:"category,omitempty"`
}

// SupplyListResponse lists supplies. Stale is true when served from the last snapshot.
type SupplyListResponse struct {
	Supplies []SupplyResponse `json:"supplies"`
	Count    int              `json:"count" example:"1"`
	Stale    bool             `json:"stale" example:"false"`
}

type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
	Count      int                `json:"count" example:"1"`
	Stale      bool               `json:"stale" example:"false"`
}

type UnitResponse struct {
	Name         string `json:"name" example:"Kilogram"`
	Abbreviation string `json:"abbreviation" example:"kg"`
}

// CustomSupplyRequest creates or updates a custom supply
// @Description A user's pricing and stock thresholds for a catalog supply
type CustomSupplyRequest struct {
	SupplyID         int64           `json:"supply_id" binding:"required" example:"3"`
	UnitName         string          `json:"unit_name" binding:"required" example:"Kilogram"`
	UnitAbbreviation string          `json:"unit_abbreviation" example:"kg"`
	Price            decimal.Decimal `json:"price" swaggertype:"string" example:"4.50"`
	CurrencyCode     string          `json:"currency_code" example:"PEN"`
	MinStock         int             `json:"min_stock" binding:"min=0" example:"5"`
	MaxStock         int             `json:"max_stock" binding:"min=0" example:"50"`
	Description      string          `json:"description" example:"Organic, from Huaral"`
}

type CustomSupplyResponse struct {
	ID           int64           `json:"id" example:"11"`
	UserID       int64           `json:"user_id" example:"42"`
	SupplyID     int64           `json:"supply_id" example:"3"`
	Name         string          `json:"name" example:"Whole milk"`
	Unit         UnitResponse    `json:"unit"`
	Price        decimal.Decimal `json:"price" swaggertype:"string" example:"4.5"`
	CurrencyCode string          `json:"currency_code" example:"PEN"`
	MinStock     int             `json:"min_stock" example:"5"`
	MaxStock     int             `json:"max_stock" example:"50"`
	Description  string          `json:"description" example:"Organic, from Huaral"`
	LocalOnly    bool            `json:"local_only" example:"false"`
}

type CustomSupplyListResponse struct {
	CustomSupplies []CustomSupplyResponse `json:"custom_supplies"`
	Count          int                    `json:"count" example:"1"`
	Stale          bool                   `json:"stale" example:"false"`
}

// DeleteCustomSupplyResponse reports both steps of the delete
type DeleteCustomSupplyResponse struct {
	ID              int64  `json:"id" example:"11"`
	RemoteDeleted   bool   `json:"remote_deleted" example:"true"`
	CascadedBatches int    `json:"cascaded_batches" example:"2"`
	Warning         string `json:"warning,omitempty" example:"backend delete failed, removed locally"`
}

// BatchRequest creates or updates a batch
// @Description Stock lot of a custom supply. Omit expiration_date for non-perishable stock.
type BatchRequest struct {
	CustomSupplyID int64  `json:"custom_supply_id" binding:"required" example:"11"`
	Stock          int    `json:"stock" binding:"min=0" example:"20"`
	ExpirationDate string `json:"expiration_date" example:"2026-11-30"`
}

type BatchResponse struct {
	ID             string               `json:"id" example:"b-1024"`
	UserID         int64                `json:"user_id" example:"42"`
	Stock          int                  `json:"stock" example:"20"`
	ExpirationDate string               `json:"expiration_date" example:"2026-11-30"`
	NonPerishable  bool                 `json:"non_perishable" example:"false"`
	LocalOnly      bool                 `json:"local_only" example:"false"`
	CustomSupply   CustomSupplyResponse `json:"custom_supply"`
}

type BatchListResponse struct {
	Batches []BatchResponse `json:"batches"`
	Count   int             `json:"count" example:"1"`
	Stale   bool            `json:"stale" example:"false"`
}

// CartItemRequest adds a supplier batch to the caller's cart
type CartItemRequest struct {
	BatchID    string `json:"batch_id" binding:"required" example:"b-1024"`
	SupplierID int64  `json:"supplier_id" example:"10"`
	Quantity   int    `json:"quantity" binding:"required,min=1" example:"2"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1" example:"3"`
}

type CartLineResponse struct {
	BatchID    string          `json:"batch_id" example:"b-1024"`
	SupplierID int64           `json:"supplier_id" example:"10"`
	SupplyName string          `json:"supply_name" example:"Whole milk"`
	Quantity   int             `json:"quantity" example:"2"`
	UnitPrice  decimal.Decimal `json:"unit_price" swaggertype:"string" example:"5"`
	LineTotal  decimal.Decimal `json:"line_total" swaggertype:"string" example:"10"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Count int                `json:"count" example:"1"`
	Total decimal.Decimal    `json:"total" swaggertype:"string" example:"10"`
}

type OrderItemResponse struct {
	BatchID  string `json:"batch_id" example:"b-1024"`
	Quantity int    `json:"quantity" example:"2"`
	Accepted bool   `json:"accepted" example:"false"`
}

type OrderResponse struct {
	ID                     int64               `json:"id" example:"501"`
	AdminRestaurantID      int64               `json:"admin_restaurant_id" example:"42"`
	SupplierID             int64               `json:"supplier_id" example:"10"`
	RequestedDate          string              `json:"requested_date" example:"2026-10-17"`
	Description            string              `json:"description" example:""`
	PartiallyAccepted      bool                `json:"partially_accepted" example:"false"`
	RequestedProductsCount int                 `json:"requested_products_count" example:"2"`
	TotalPrice             decimal.Decimal     `json:"total_price" swaggertype:"string" example:"13"`
	State                  string              `json:"state" example:"ON_HOLD"`
	Situation              string              `json:"situation" example:"PENDING"`
	Items                  []OrderItemResponse `json:"items"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Count  int             `json:"count" example:"1"`
	Stale  bool            `json:"stale" example:"false"`
}

type FailedSupplierResponse struct {
	SupplierID int64           `json:"supplier_id" example:"20"`
	ItemCount  int             `json:"item_count" example:"1"`
	Total      decimal.Decimal `json:"total" swaggertype:"string" example:"7"`
	Error      string          `json:"error" example:"backend returned 409: supplier is not accepting orders"`
}

// SubmitResponse is returned with 201 when every supplier order was created
// and with 207 when only some were. Failed lines remain in Cart.
type SubmitResponse struct {
	Submitted []OrderResponse          `json:"submitted"`
	Failed    []FailedSupplierResponse `json:"failed"`
	Cart      CartResponse             `json:"cart"`
}

type StateTransitionRequest struct {
	State string `json:"state" binding:"required" example:"PREPARING"`
}

type SupplierResponseRequest struct {
	AcceptedBatchIDs []string `json:"accepted_batch_ids" example:"b-1024"`
}

func toCategoryResponse(category *domain.Category) *CategoryResponse {
	if category == nil {
		return nil
	}
	return &CategoryResponse{ID: category.ID, Name: category.Name}
}

func toSupplyResponses(supplies []domain.Supply) []SupplyResponse {
	out := make([]SupplyResponse, 0, len(supplies))
	for _, s := range supplies {
		out = append(out, SupplyResponse{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Perishable:  s.Perishable,
			Category:    toCategoryResponse(s.Category),
		})
	}
	return out
}

func toCustomSupplyResponse(c domain.CustomSupply) CustomSupplyResponse {
	return CustomSupplyResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		SupplyID:     c.SupplyID,
		Name:         c.Name(),
		Unit:         UnitResponse{Name: c.Unit.Name, Abbreviation: c.Unit.Abbreviation},
		Price:        c.Price,
		CurrencyCode: c.CurrencyCode,
		MinStock:     c.MinStock,
		MaxStock:     c.MaxStock,
		Description:  c.Description,
		LocalOnly:    c.IsLocalOnly(),
	}
}

func toBatchResponse(b domain.Batch) BatchResponse {
	return BatchResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		Stock:          b.Stock,
		ExpirationDate: domain.FormatExpiration(b.ExpirationDate),
		NonPerishable:  b.NonPerishable(),
		LocalOnly:      b.IsLocalOnly(),
		CustomSupply:   toCustomSupplyResponse(b.CustomSupply),
	}
}

func toBatchListResponse(batches []domain.Batch, stale bool) BatchListResponse {
	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	return BatchListResponse{Batches: out, Count: len(out), Stale: stale}
}

func toCartResponse(cart *orders.Cart) CartResponse {
	items := cart.Items()
	lines := make([]CartLineResponse, 0, len(items))
	for _, item := range items {
		lines = append(lines, CartLineResponse{
			BatchID:    item.BatchID,
			SupplierID: item.Batch.UserID,
			SupplyName: item.Batch.CustomSupply.Name(),
			Quantity:   item.Quantity,
			UnitPrice:  item.Batch.CustomSupply.Price,
			LineTotal:  item.LineTotal(),
		})
	}
	return CartResponse{Items: lines, Count: len(lines), Total: cart.Total()}
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{BatchID: item.BatchID, Quantity: item.Quantity, Accepted: item.Accepted})
	}
	requested := ""
	if !o.RequestedDate.IsZero() {
		requested = o.RequestedDate.Format("2006-01-02")
	}
	return OrderResponse{
		ID:                     o.ID,
		AdminRestaurantID:      o.AdminRestaurantID,
		SupplierID:             o.SupplierID,
		RequestedDate:          requested,
		Description:            o.Description,
		PartiallyAccepted:      o.PartiallyAccepted,
		RequestedProductsCount: o.RequestedProductsCount,
		TotalPrice:             o.TotalPrice,
		State:                  string(o.State),
		Situation:              string(o.Situation),
		Items:                  items,
	}
}

func toOrderResponses(list []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	return out
}

// SyncStatusResponse describes the offline store for the caller
type SyncStatusResponse struct {
	Status string `json:"status" example:"ok"`
	Store  struct {
		Type      string `json:"type" example:"sqlite"`
		Connected bool   `json:"connected" example:"true"`
	} `json:"store"`
	CachedBatches  int `json:"cached_batches" example:"4"`
	PendingBatches int `json:"pending_batches" example:"1"`
}
