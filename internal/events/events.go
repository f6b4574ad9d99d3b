package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stream selects the topic family an event is written to
type Stream int

const (
	StreamInventory Stream = iota
	StreamOrders
)

// Event is a sync or audit fact emitted after a reconciliation step completes
type Event interface {
	EventType() string
	Stream() Stream
	PartitionKey() string
}

// Publisher defines the interface for publishing sync events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// BatchSynced is emitted after a batch is written to the local store
type BatchSynced struct {
	BatchID        string    `json:"batchId"`
	UserID         int64     `json:"userId"`
	CustomSupplyID int64     `json:"customSupplyId"`
	Stock          int       `json:"stock"`
	LocalOnly      bool      `json:"localOnly"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type BatchDeleted struct {
	BatchID       string    `json:"batchId"`
	UserID        int64     `json:"userId"`
	RemoteDeleted bool      `json:"remoteDeleted"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// CustomSupplyDeleted records both steps of the delete: the backend call and the local cascade
type CustomSupplyDeleted struct {
	CustomSupplyID  int64     `json:"customSupplyId"`
	UserID          int64     `json:"userId"`
	RemoteDeleted   bool      `json:"remoteDeleted"`
	CascadedBatches int       `json:"cascadedBatches"`
	OccurredAt      time.Time `json:"occurredAt"`
}

type OrderSubmitted struct {
	OrderID           int64     `json:"orderId"`
	AdminRestaurantID int64     `json:"adminRestaurantId"`
	SupplierID        int64     `json:"supplierId"`
	ItemCount         int       `json:"itemCount"`
	TotalPrice        string    `json:"totalPrice"`
	OccurredAt        time.Time `json:"occurredAt"`
}

type OrderSubmissionFailed struct {
	AdminRestaurantID int64     `json:"adminRestaurantId"`
	SupplierID        int64     `json:"supplierId"`
	Reason            string    `json:"reason"`
	OccurredAt        time.Time `json:"occurredAt"`
}

type OrderStateChanged struct {
	OrderID    int64     `json:"orderId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Situation  string    `json:"situation"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (BatchSynced) EventType() string           { return "BatchSynced" }
func (BatchDeleted) EventType() string          { return "BatchDeleted" }
func (CustomSupplyDeleted) EventType() string   { return "CustomSupplyDeleted" }
func (OrderSubmitted) EventType() string        { return "OrderSubmitted" }
func (OrderSubmissionFailed) EventType() string { return "OrderSubmissionFailed" }
func (OrderStateChanged) EventType() string     { return "OrderStateChanged" }

func (BatchSynced) Stream() Stream           { return StreamInventory }
func (BatchDeleted) Stream() Stream          { return StreamInventory }
func (CustomSupplyDeleted) Stream() Stream   { return StreamInventory }
func (OrderSubmitted) Stream() Stream        { return StreamOrders }
func (OrderSubmissionFailed) Stream() Stream { return StreamOrders }
func (OrderStateChanged) Stream() Stream     { return StreamOrders }

func (e BatchSynced) PartitionKey() string  { return e.BatchID }
func (e BatchDeleted) PartitionKey() string { return e.BatchID }
func (e CustomSupplyDeleted) PartitionKey() string {
	return strconv.FormatInt(e.CustomSupplyID, 10)
}

// Order events are keyed by supplier so one supplier's history stays ordered
func (e OrderSubmitted) PartitionKey() string        { return strconv.FormatInt(e.SupplierID, 10) }
func (e OrderSubmissionFailed) PartitionKey() string { return strconv.FormatInt(e.SupplierID, 10) }
func (e OrderStateChanged) PartitionKey() string     { return strconv.FormatInt(e.OrderID, 10) }

// Emit publishes an event without failing the caller; publish errors are logged
func Emit(ctx context.Context, publisher Publisher, logger *zap.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.String("key", event.PartitionKey()),
			zap.Error(err),
		)
	}
}

// InMemoryEventPublisher keeps events in memory; used when Kafka is disabled and in tests
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	logger *zap.Logger
	events []Event
}

func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		logger: logger,
		events: make([]Event, 0),
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()

	p.logger.Debug("Event recorded in memory",
		zap.String("event_type", event.EventType()),
		zap.String("key", event.PartitionKey()),
	)
	return nil
}

// Events returns a copy of everything published so far
func (p *InMemoryEventPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *InMemoryEventPublisher) Close() error {
	return nil
}
