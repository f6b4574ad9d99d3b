package middleware

import (
	"errors"
	"net/http"
	"strings"

	"restock-sync/internal/auth"
	stderrors "restock-sync/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
	UserIDContextKey = "user_id"
	RoleContextKey   = "role"
	TokenContextKey  = "token"
)

// AuthMiddleware validates the bearer token and exposes the caller's id, role and raw token
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			abortUnauthorized(c, "missing authorization header", "Header: Authorization")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			abortUnauthorized(c, "invalid authorization header format", "Expected: Bearer <token>")
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Rejected token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "token expired", "Token has expired, please login again")
				return
			}
			abortUnauthorized(c, "invalid token", err.Error())
			return
		}

		// ValidateToken guarantees a numeric subject
		userID, _ := claims.UserID()
		c.Set(UserIDContextKey, userID)
		c.Set(RoleContextKey, claims.Role)
		c.Set(TokenContextKey, tokenString)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, stderrors.NewUnauthorized(message, details))
}

// GetUserID returns the authenticated user id, or 0 outside AuthMiddleware
func GetUserID(c *gin.Context) int64 {
	id, _ := c.Get(UserIDContextKey)
	userID, _ := id.(int64)
	return userID
}

func GetToken(c *gin.Context) string {
	return c.GetString(TokenContextKey)
}
