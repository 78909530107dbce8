package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StatsHandler serves aggregate counters for dashboards.
type StatsHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewStatsHandler(repos *Repos, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{repos: repos, logger: logger}
}

func (h *StatsHandler) Stats(c echo.Context) error {
	users, err := h.repos.User.Count()
	if err != nil {
		h.logger.Error("API stats users failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to load stats")
	}
	orders, err := h.repos.Order.Count()
	if err != nil {
		h.logger.Error("API stats orders failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to load stats")
	}
	codes, consumed, err := h.repos.Redeem.CountConsumed()
	if err != nil {
		h.logger.Error("API stats codes failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to load stats")
	}

	return respondOK(c, map[string]interface{}{
		"users":          users,
		"orders":         orders,
		"codes":          codes,
		"codes_consumed": consumed,
	})
}
