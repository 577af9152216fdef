package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg Config) {
	e.HTTPErrorHandler = jsonErrorHandler()

	e.Use(jsonContentType)
	e.Use(noStore)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	// Ledger bootstrap: mints and token accounts
	v1.POST("/mints", h.MintCreate)
	v1.GET("/mints/:address", h.MintGet)
	v1.POST("/mints/:address/mint-to", h.MintTo)
	v1.POST("/accounts", h.AccountCreate)
	v1.GET("/accounts/:address", h.AccountGet)

	// Pools and pricing
	v1.POST("/pools", h.PoolCreate)
	v1.GET("/pools", h.PoolList)
	v1.GET("/pools/:address", h.PoolGet)
	v1.GET("/quote", h.Quote)

	// Mutating pool operations, rate limited per gateway
	ops := v1.Group("")
	ops.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(10), // 10 requests per second
		Burst:     20,
		ExpiresIn: 2 * time.Minute,
	})))
	ops.POST("/swap", h.SwapExecute)
	ops.POST("/liquidity", h.LiquidityAdd)
	ops.POST("/transfer", h.Transfer)

	// Activity views
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/prices", h.Price)

	// AI endpoints with their own, much tighter rate limit
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/ask", h.AIAsk)

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
