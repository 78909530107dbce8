package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"autoorderbot/internal/handler/api"
	"autoorderbot/internal/middleware"
	"autoorderbot/internal/order"
	"autoorderbot/internal/redeem"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	repos *api.Repos,
	tracker *order.Tracker,
	registry *redeem.Registry,
	logger *zap.Logger,
	apiKey string,
	updateDeduper middleware.UpdateDeduper,
	webhookHandler http.Handler,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Handlers
	userHandler := api.NewUserHandler(repos, logger)
	orderHandler := api.NewOrderHandler(repos, tracker, logger)
	codeHandler := api.NewCodeHandler(repos, registry, logger)
	statsHandler := api.NewStatsHandler(repos, logger)

	// Admin API group behind token auth
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(apiKey))

	apiGroup.GET("/users", userHandler.List)
	apiGroup.GET("/users/:id", userHandler.Get)
	apiGroup.POST("/users/:id/balance", userHandler.AdjustBalance)
	apiGroup.GET("/orders", orderHandler.List)
	apiGroup.POST("/orders/:id/refresh", orderHandler.Refresh)
	apiGroup.GET("/codes", codeHandler.List)
	apiGroup.POST("/codes", codeHandler.Issue)
	apiGroup.GET("/stats", statsHandler.Stats)

	// Telegram webhook (protected by IP check + deduplication)
	if webhookHandler != nil {
		botWebhookGroup := e.Group("/bot")
		botWebhookGroup.Use(middleware.TelegramIPCheck())
		botWebhookGroup.Use(middleware.TelegramUpdateDedup(updateDeduper))
		botWebhookGroup.POST("/webhook", echo.WrapHandler(webhookHandler))
	} else {
		logger.Info("Telegram webhook routes disabled (bot update mode is polling)")
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
