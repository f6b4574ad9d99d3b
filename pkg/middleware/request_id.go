package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"restock-sync/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader     = "X-Request-ID"
	RequestIDContextKey = "request_id"

	idempotencyKeyPrefix = "idempotency:"
)

var ErrRequestIDNotFound = errors.New("request ID not found")

// storedResponse is what gets replayed for a repeated request id
type storedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// RequestIDStore keeps responses of processed write requests by request id
type RequestIDStore interface {
	Store(ctx context.Context, requestID string, response []byte, ttl time.Duration) error
	Get(ctx context.Context, requestID string) ([]byte, error)
}

// CacheRequestIDStore keeps idempotent responses in the shared cache (Redis or memory)
type CacheRequestIDStore struct {
	cache cache.Cache
}

func NewCacheRequestIDStore(c cache.Cache) *CacheRequestIDStore {
	return &CacheRequestIDStore{cache: c}
}

func (s *CacheRequestIDStore) Store(ctx context.Context, requestID string, response []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, idempotencyKeyPrefix+requestID, response, ttl)
}

func (s *CacheRequestIDStore) Get(ctx context.Context, requestID string) ([]byte, error) {
	response, err := s.cache.Get(ctx, idempotencyKeyPrefix+requestID)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrRequestIDNotFound
	}
	return response, err
}

// RequestIDMiddleware extracts or generates X-Request-ID
func RequestIDMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}

// IdempotencyMiddleware replays the stored response of a write request whose
// X-Request-ID was already processed, so retried submissions are not sent twice.
// Only complete successes are stored: a 207 must reach the handler again so the
// lines left in the cart get resubmitted.
func IdempotencyMiddleware(store RequestIDStore, logger *zap.Logger, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWrite(c.Request.Method) || c.GetHeader(RequestIDHeader) == "" {
			c.Next()
			return
		}

		key := idempotencyKey(c)
		cached, err := store.Get(c.Request.Context(), key)
		if err != nil && !errors.Is(err, ErrRequestIDNotFound) {
			// fail open
			logger.Warn("Idempotency lookup failed", zap.String("request_id", GetRequestID(c)), zap.Error(err))
		}
		if err == nil && len(cached) > 0 {
			var stored storedResponse
			if decodeErr := json.Unmarshal(cached, &stored); decodeErr == nil && stored.Status != 0 {
				logger.Info("Duplicate request detected, returning stored response",
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Int("status", stored.Status),
				)
				c.Header("Idempotent-Replay", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
			logger.Warn("Discarding unreadable stored response", zap.String("request_id", GetRequestID(c)))
		}

		writer := &responseWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if !replayable(status) || len(writer.body) == 0 {
			return
		}
		payload, err := json.Marshal(storedResponse{Status: status, Body: writer.body})
		if err == nil {
			err = store.Store(c.Request.Context(), key, payload, ttl)
		}
		if err != nil {
			logger.Warn("Failed to store response for idempotency",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
		}
	}
}

func replayable(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices && status != http.StatusMultiStatus
}

// idempotencyKey scopes the request id to the caller and route
func idempotencyKey(c *gin.Context) string {
	return strconv.FormatInt(GetUserID(c), 10) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + GetRequestID(c)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the response body
type responseWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, s...)
	return w.ResponseWriter.WriteString(s)
}
