package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"autoorderbot/internal/redeem"
)

// CodeHandler serves redeem code admin endpoints.
type CodeHandler struct {
	repos    *Repos
	registry *redeem.Registry
	logger   *zap.Logger
}

func NewCodeHandler(repos *Repos, registry *redeem.Registry, logger *zap.Logger) *CodeHandler {
	return &CodeHandler{repos: repos, registry: registry, logger: logger}
}

// List returns issued codes, newest first.
func (h *CodeHandler) List(c echo.Context) error {
	limit, page := pageParams(c)
	codes, total, err := h.repos.Redeem.FindAll(limit, page)
	if err != nil {
		h.logger.Error("API list codes failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to list codes")
	}
	return respondOK(c, map[string]interface{}{
		"codes": codes,
		"total": total,
	})
}

type issueRequest struct {
	Amount   int    `json:"amount"`
	IssuedBy string `json:"issued_by"`
}

// Issue creates a new redeem code and returns the token plus the
// shareable file artifact.
func (h *CodeHandler) Issue(c echo.Context) error {
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid request body")
	}

	code, err := h.registry.Issue(req.Amount, req.IssuedBy)
	if err != nil {
		if errors.Is(err, redeem.ErrBadAmount) {
			return respondErr(c, http.StatusBadRequest, "amount must be positive")
		}
		h.logger.Error("API issue code failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to issue code")
	}

	return respondOK(c, map[string]interface{}{
		"code":     code,
		"artifact": string(redeem.EncodeCodeFile(code.Code, code.Amount)),
	})
}
