package server

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// registerRoutes registers all HTTP routes using Echo
func registerRoutes(e *echo.Echo, handler *HandlerAdapter) {
	// Health check
	e.GET("/health", handler.HealthCheck)

	// Swagger documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	v1 := e.Group("/api/v1")
	v1.GET("/scopes", handler.GetScopes)

	// Account endpoints
	accounts := v1.Group("/:network/:layer/accounts")
	accounts.GET("/search", handler.SearchAccounts)
	accounts.GET("/:address/metadata", handler.GetAccountMetadata)
}
