package handlers

import (
	"context"
	"errors"
	"net/http"

	"restock-sync/internal/domain"
	"restock-sync/internal/orders"
	"restock-sync/internal/remote"
	"restock-sync/internal/store"
	stderrors "restock-sync/pkg/errors"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// toStandardError maps repository and backend failures to API errors
func toStandardError(err error) *stderrors.StandardError {
	var (
		stdErr    *stderrors.StandardError
		apiErr    *remote.APIError
		domainErr *domain.DomainError
	)
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrResponseAfterStart):
		return stderrors.NewStandardError("InvalidTransition", err.Error(), "")
	case errors.As(err, &domainErr):
		return stderrors.NewStandardError("ValidationError", domainErr.Message, "")
	case errors.Is(err, orders.ErrEmptyCart):
		return stderrors.NewEmptyCart()
	case errors.Is(err, orders.ErrItemNotInCart):
		return stderrors.NewStandardError("ResourceNotFound", err.Error(), "")
	case errors.Is(err, orders.ErrExceedsStock):
		return stderrors.NewValidationError(err.Error(), "quantity")
	case errors.Is(err, store.ErrBatchNotFound):
		return stderrors.NewStandardError("ResourceNotFound", "batch not found", "")
	case errors.Is(err, remote.ErrMalformedResponse):
		return stderrors.NewBadBackendResponse(err)
	case errors.Is(err, remote.ErrBackendUnavailable):
		return stderrors.NewBackendUnavailable(err)
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			return stderrors.NewStandardError("ResourceNotFound", apiErr.Error(), "")
		}
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return stderrors.NewUnauthorized(apiErr.Message, apiErr.Error())
		}
		return stderrors.NewBackendRejected(apiErr.StatusCode, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return stderrors.NewBackendUnavailable(err)
	default:
		return stderrors.NewInternalError("internal server error", err)
	}
}

// fail attaches err for ErrorHandler and aborts
func fail(c *gin.Context, err error) {
	c.Error(toStandardError(err))
	c.Abort()
}

// backendContext forwards the caller's token and request id to backend calls
func backendContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if token := middleware.GetToken(c); token != "" {
		ctx = remote.WithToken(ctx, token)
	}
	if requestID := middleware.GetRequestID(c); requestID != "" {
		ctx = remote.WithRequestID(ctx, requestID)
	}
	return ctx
}
