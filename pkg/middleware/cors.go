package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the mobile web build and local tooling to call the API from any origin
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Idempotent-Replay"},
		AllowCredentials: false,
		MaxAge:           time.Hour,
	})
}
