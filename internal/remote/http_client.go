package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"restock-sync/internal/domain"

	"go.uber.org/zap"
)

// HTTPClient implements Client against the backend REST API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a backend client. The timeout is the only
// cancellation applied besides the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *HTTPClient) ListSupplies(ctx context.Context) ([]domain.Supply, error) {
	var dtos []supplyDTO
	if err := c.do(ctx, http.MethodGet, "/supplies", nil, nil, &dtos); err != nil {
		return nil, err
	}
	supplies := make([]domain.Supply, 0, len(dtos))
	for _, dto := range dtos {
		supplies = append(supplies, dto.toDomain())
	}
	return supplies, nil
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var dtos []categoryDTO
	if err := c.do(ctx, http.MethodGet, "/supplies/categories", nil, nil, &dtos); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(dtos))
	for _, dto := range dtos {
		categories = append(categories, domain.Category{ID: dto.ID, Name: dto.Name})
	}
	return categories, nil
}

func (c *HTTPClient) ListCustomSupplies(ctx context.Context, userID int64) ([]domain.CustomSupply, error) {
	var dtos []customSupplyDTO
	if err := c.do(ctx, http.MethodGet, "/custom-supplies", userQuery("userId", userID), nil, &dtos); err != nil {
		return nil, err
	}
	supplies := make([]domain.CustomSupply, 0, len(dtos))
	for _, dto := range dtos {
		supplies = append(supplies, dto.toDomain())
	}
	return supplies, nil
}

func (c *HTTPClient) CreateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	var created customSupplyDTO
	if err := c.do(ctx, http.MethodPost, "/custom-supplies", nil, fromCustomSupply(supply), &created); err != nil {
		return nil, err
	}
	if created.ID <= 0 {
		return nil, malformed(http.MethodPost, "/custom-supplies")
	}
	result := created.toDomain()
	return &result, nil
}

func (c *HTTPClient) UpdateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	var updated customSupplyDTO
	path := "/custom-supplies/" + strconv.FormatInt(supply.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, fromCustomSupply(supply), &updated); err != nil {
		return nil, err
	}
	if updated.ID <= 0 {
		return nil, malformed(http.MethodPut, path)
	}
	result := updated.toDomain()
	return &result, nil
}

func (c *HTTPClient) DeleteCustomSupply(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/custom-supplies/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *HTTPClient) ListBatches(ctx context.Context, userID int64) ([]domain.Batch, error) {
	var dtos []batchDTO
	if err := c.do(ctx, http.MethodGet, "/batches", userQuery("userId", userID), nil, &dtos); err != nil {
		return nil, err
	}
	batches := make([]domain.Batch, 0, len(dtos))
	for _, dto := range dtos {
		batches = append(batches, dto.toDomain())
	}
	return batches, nil
}

func (c *HTTPClient) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	var created batchDTO
	if err := c.do(ctx, http.MethodPost, "/batches", nil, fromBatch(batch), &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, malformed(http.MethodPost, "/batches")
	}
	result := created.toDomain()
	return &result, nil
}

func (c *HTTPClient) UpdateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	var updated batchDTO
	path := "/batches/" + url.PathEscape(batch.ID)
	if err := c.do(ctx, http.MethodPut, path, nil, fromBatch(batch), &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return nil, malformed(http.MethodPut, path)
	}
	result := updated.toDomain()
	return &result, nil
}

func (c *HTTPClient) DeleteBatch(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/batches/"+url.PathEscape(id), nil, nil, nil)
}

func (c *HTTPClient) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	var created orderDTO
	if err := c.do(ctx, http.MethodPost, "/orders", nil, fromOrder(order), &created); err != nil {
		return nil, err
	}
	if created.ID <= 0 {
		return nil, malformed(http.MethodPost, "/orders")
	}
	result := created.toDomain()
	return &result, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var dto orderDTO
	path := "/orders/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &dto); err != nil {
		return nil, err
	}
	if dto.ID <= 0 {
		return nil, malformed(http.MethodGet, path)
	}
	result := dto.toDomain()
	return &result, nil
}

func (c *HTTPClient) ListOrdersByAdminRestaurant(ctx context.Context, adminRestaurantID int64) ([]domain.Order, error) {
	return c.listOrders(ctx, userQuery("adminRestaurantId", adminRestaurantID))
}

func (c *HTTPClient) ListOrdersBySupplier(ctx context.Context, supplierID int64) ([]domain.Order, error) {
	return c.listOrders(ctx, userQuery("supplierId", supplierID))
}

func (c *HTTPClient) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	var updated orderDTO
	path := "/orders/" + strconv.FormatInt(order.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, fromOrder(order), &updated); err != nil {
		return nil, err
	}
	if updated.ID <= 0 {
		return nil, malformed(http.MethodPut, path)
	}
	result := updated.toDomain()
	return &result, nil
}

func (c *HTTPClient) listOrders(ctx context.Context, query url.Values) ([]domain.Order, error) {
	var dtos []orderDTO
	if err := c.do(ctx, http.MethodGet, "/orders", query, nil, &dtos); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(dtos))
	for _, dto := range dtos {
		orders = append(orders, dto.toDomain())
	}
	return orders, nil
}

// do performs one JSON round trip. Any non-2xx status becomes *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := requestIDFrom(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %v", ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func malformed(method, path string) error {
	return fmt.Errorf("%w: %s %s", ErrMalformedResponse, method, path)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body errorDTO
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	apiErr.Message = string(raw)
	return apiErr
}

func userQuery(key string, id int64) url.Values {
	if id == 0 {
		return nil
	}
	return url.Values{key: []string{strconv.FormatInt(id, 10)}}
}
