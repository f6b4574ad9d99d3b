// Package remote talks to the restaurant-supply REST backend. It is pure
// I/O: no merging, caching or fallback happens here.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"restock-sync/internal/domain"
)

// Client is the typed surface of the backend used by the repositories
type Client interface {
	ListSupplies(ctx context.Context) ([]domain.Supply, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	ListCustomSupplies(ctx context.Context, userID int64) ([]domain.CustomSupply, error)
	CreateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error)
	UpdateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error)
	DeleteCustomSupply(ctx context.Context, id int64) error

	ListBatches(ctx context.Context, userID int64) ([]domain.Batch, error)
	CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	UpdateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	DeleteBatch(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByAdminRestaurant(ctx context.Context, adminRestaurantID int64) ([]domain.Order, error)
	ListOrdersBySupplier(ctx context.Context, supplierID int64) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
}

var (
	// ErrBackendUnavailable wraps transport failures (timeouts, refused connections)
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedResponse is a 2xx answer that did not carry the entity the endpoint must return.
	// The write may have been applied.
	ErrMalformedResponse = errors.New("backend response carried no entity")
)

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a backend 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type contextKey string

const (
	tokenKey     contextKey = "remote_token"
	requestIDKey contextKey = "remote_request_id"
)

// WithToken attaches the caller's bearer token for outgoing backend calls
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// WithRequestID propagates the inbound X-Request-ID to the backend
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
