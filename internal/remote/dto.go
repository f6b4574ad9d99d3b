package remote

import (
	"time"

	"restock-sync/internal/domain"

	"github.com/shopspring/decimal"
)

type categoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type supplyDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Perishable  bool         `json:"perishable"`
	Category    *categoryDTO `json:"category"`
}

type unitDTO struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type customSupplyDTO struct {
	ID           int64      `json:"id,omitempty"`
	UserID       int64      `json:"userId"`
	SupplyID     int64      `json:"supplyId"`
	Supply       *supplyDTO `json:"supply,omitempty"`
	Unit         unitDTO    `json:"unit"`
	Price        float64    `json:"price"`
	CurrencyCode string     `json:"currencyCode"`
	MinStock     int        `json:"minStock"`
	MaxStock     int        `json:"maxStock"`
	Description  string     `json:"description"`
}

type batchDTO struct {
	ID             string           `json:"id,omitempty"`
	UserID         int64            `json:"userId"`
	Stock          int              `json:"stock"`
	ExpirationDate string           `json:"expirationDate,omitempty"`
	CustomSupplyID int64            `json:"customSupplyId"`
	CustomSupply   *customSupplyDTO `json:"customSupply,omitempty"`
}

type orderBatchItemDTO struct {
	BatchID  string    `json:"batchId"`
	Quantity int       `json:"quantity"`
	Accepted bool      `json:"accepted"`
	Batch    *batchDTO `json:"batch,omitempty"`
}

type orderDTO struct {
	ID                     int64               `json:"id,omitempty"`
	AdminRestaurantID      int64               `json:"adminRestaurantId"`
	SupplierID             int64               `json:"supplierId"`
	RequestedDate          string              `json:"requestedDate"`
	Description            string              `json:"description,omitempty"`
	PartiallyAccepted      bool                `json:"partiallyAccepted"`
	RequestedProductsCount int                 `json:"requestedProductsCount"`
	TotalPrice             float64             `json:"totalPrice"`
	State                  string              `json:"state"`
	Situation              string              `json:"situation"`
	Batches                []orderBatchItemDTO `json:"batches"`
}

type errorDTO struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (d supplyDTO) toDomain() domain.Supply {
	supply := domain.Supply{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Perishable:  d.Perishable,
	}
	if d.Category != nil {
		supply.Category = &domain.Category{ID: d.Category.ID, Name: d.Category.Name}
	}
	return supply
}

func fromSupply(s *domain.Supply) *supplyDTO {
	if s == nil {
		return nil
	}
	dto := &supplyDTO{ID: s.ID, Name: s.Name, Description: s.Description, Perishable: s.Perishable}
	if s.Category != nil {
		dto.Category = &categoryDTO{ID: s.Category.ID, Name: s.Category.Name}
	}
	return dto
}

func (d customSupplyDTO) toDomain() domain.CustomSupply {
	supply := domain.CustomSupply{
		ID:           d.ID,
		UserID:       d.UserID,
		SupplyID:     d.SupplyID,
		Unit:         domain.Unit{Name: d.Unit.Name, Abbreviation: d.Unit.Abbreviation},
		Price:        decimal.NewFromFloat(d.Price),
		CurrencyCode: d.CurrencyCode,
		MinStock:     d.MinStock,
		MaxStock:     d.MaxStock,
		Description:  d.Description,
	}
	if d.Supply != nil {
		s := d.Supply.toDomain()
		supply.Supply = &s
		if supply.SupplyID == 0 {
			supply.SupplyID = s.ID
		}
	}
	return supply
}

func fromCustomSupply(c domain.CustomSupply) customSupplyDTO {
	dto := customSupplyDTO{
		UserID:       c.UserID,
		SupplyID:     c.SupplyID,
		Supply:       fromSupply(c.Supply),
		Unit:         unitDTO{Name: c.Unit.Name, Abbreviation: c.Unit.Abbreviation},
		Price:        c.Price.InexactFloat64(),
		CurrencyCode: c.CurrencyCode,
		MinStock:     c.MinStock,
		MaxStock:     c.MaxStock,
		Description:  c.Description,
	}
	// local-only ids are never sent to the backend
	if !c.IsLocalOnly() {
		dto.ID = c.ID
	}
	return dto
}

func (d batchDTO) toDomain() domain.Batch {
	batch := domain.Batch{
		ID:     d.ID,
		UserID: d.UserID,
		Stock:  d.Stock,
	}
	if expiration, err := domain.ParseExpiration(d.ExpirationDate); err == nil {
		batch.ExpirationDate = expiration
	}
	if d.CustomSupply != nil {
		batch.CustomSupply = d.CustomSupply.toDomain()
	} else {
		// partially hydrated snapshot
		batch.CustomSupply = domain.CustomSupply{ID: d.CustomSupplyID}
	}
	return batch
}

func fromBatch(b domain.Batch) batchDTO {
	customSupply := fromCustomSupply(b.CustomSupply)
	dto := batchDTO{
		UserID:         b.UserID,
		Stock:          b.Stock,
		ExpirationDate: domain.FormatExpiration(b.ExpirationDate),
		CustomSupplyID: b.CustomSupply.ID,
		CustomSupply:   &customSupply,
	}
	if !b.IsLocalOnly() {
		dto.ID = b.ID
	}
	return dto
}

func (d orderDTO) toDomain() domain.Order {
	order := domain.Order{
		ID:                     d.ID,
		AdminRestaurantID:      d.AdminRestaurantID,
		SupplierID:             d.SupplierID,
		Description:            d.Description,
		PartiallyAccepted:      d.PartiallyAccepted,
		RequestedProductsCount: d.RequestedProductsCount,
		TotalPrice:             decimal.NewFromFloat(d.TotalPrice),
		State:                  domain.OrderState(d.State),
		Situation:              domain.OrderSituation(d.Situation),
		Items:                  make([]domain.OrderBatchItem, 0, len(d.Batches)),
	}
	if requested, err := time.Parse("2006-01-02", d.RequestedDate); err == nil {
		order.RequestedDate = requested
	}
	for _, item := range d.Batches {
		line := domain.OrderBatchItem{
			BatchID:  item.BatchID,
			Quantity: item.Quantity,
			Accepted: item.Accepted,
		}
		if item.Batch != nil {
			line.Batch = item.Batch.toDomain()
		} else {
			line.Batch = domain.Batch{ID: item.BatchID}
		}
		order.Items = append(order.Items, line)
	}
	return order
}

func fromOrder(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:                     o.ID,
		AdminRestaurantID:      o.AdminRestaurantID,
		SupplierID:             o.SupplierID,
		RequestedDate:          o.RequestedDate.Format("2006-01-02"),
		Description:            o.Description,
		PartiallyAccepted:      o.PartiallyAccepted,
		RequestedProductsCount: o.RequestedProductsCount,
		TotalPrice:             o.TotalPrice.InexactFloat64(),
		State:                  string(o.State),
		Situation:              string(o.Situation),
		Batches:                make([]orderBatchItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		batch := fromBatch(item.Batch)
		batch.ID = item.BatchID
		dto.Batches = append(dto.Batches, orderBatchItemDTO{
			BatchID:  item.BatchID,
			Quantity: item.Quantity,
			Accepted: item.Accepted,
			Batch:    &batch,
		})
	}
	return dto
}
