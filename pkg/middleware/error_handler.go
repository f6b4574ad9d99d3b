package middleware

import (
	stdlib "errors"
	"net/http"

	"restock-sync/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error as a StandardError.
// Handlers that already wrote a body (207 submissions) are left alone.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var stdErr *errors.StandardError
		cause := c.Errors.Last().Err
		if !stdlib.As(cause, &stdErr) {
			stdErr = errors.NewInternalError("internal server error", cause)
		}

		status := stdErr.HTTPStatus()
		fields := []zap.Field{
			zap.String("error_code", stdErr.Code),
			zap.String("message", stdErr.Message),
			zap.String("details", stdErr.Details),
			zap.Int("status", status),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", GetRequestID(c)),
		}
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			logger.Error("Request failed", fields...)
		} else {
			logger.Warn("Request rejected", fields...)
		}

		c.JSON(status, stdErr)
	}
}

// RecoveryHandler answers panics, development DPanics included, with a 500
func RecoveryHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errors.NewInternalError("internal server error", nil))
	})
}
