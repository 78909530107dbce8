package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"autoorderbot/internal/order"
	"autoorderbot/internal/pkg/utils"
)

// OrderHandler serves order record admin endpoints.
type OrderHandler struct {
	repos   *Repos
	tracker *order.Tracker
	logger  *zap.Logger
}

func NewOrderHandler(repos *Repos, tracker *order.Tracker, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{repos: repos, tracker: tracker, logger: logger}
}

// List returns order records, optionally filtered by user.
func (h *OrderHandler) List(c echo.Context) error {
	limit, page := pageParams(c)
	orders, total, err := h.repos.Order.FindAll(limit, page, c.QueryParam("user"))
	if err != nil {
		h.logger.Error("API list orders failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to list orders")
	}
	return respondOK(c, map[string]interface{}{
		"orders": orders,
		"total":  total,
	})
}

// Refresh re-polls one order against the panel and returns the fresh row.
func (h *OrderHandler) Refresh(c echo.Context) error {
	id := utils.ParseInt(c.Param("id"), 0)
	if id <= 0 {
		return respondErr(c, http.StatusBadRequest, "invalid order id")
	}

	record, err := h.tracker.Refresh(context.Background(), uint(id))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return respondErr(c, http.StatusNotFound, "order not found")
		}
		h.logger.Warn("API order refresh failed", zap.Int("order_id", id), zap.Error(err))
		return respondErr(c, http.StatusBadGateway, "status poll failed")
	}
	return respondOK(c, record)
}
