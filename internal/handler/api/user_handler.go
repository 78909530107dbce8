package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"autoorderbot/internal/repository"
)

// UserHandler serves user and balance admin endpoints.
type UserHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewUserHandler(repos *Repos, logger *zap.Logger) *UserHandler {
	return &UserHandler{repos: repos, logger: logger}
}

// List returns users ordered by balance.
func (h *UserHandler) List(c echo.Context) error {
	limit, page := pageParams(c)
	users, total, err := h.repos.User.FindAll(limit, page)
	if err != nil {
		h.logger.Error("API list users failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to list users")
	}
	return respondOK(c, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// Get returns one user by chat ID.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.repos.User.FindByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		h.logger.Error("API get user failed", zap.Error(err))
		return respondErr(c, http.StatusInternalServerError, "failed to load user")
	}
	return respondOK(c, user)
}

type balanceRequest struct {
	Credit int `json:"credit"`
	Debit  int `json:"debit"`
}

// AdjustBalance credits or debits a user's limit. Debits go through the
// same conditional update as order charging and refuse to undercut zero.
func (h *UserHandler) AdjustBalance(c echo.Context) error {
	var req balanceRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Credit < 0 || req.Debit < 0 || (req.Credit == 0 && req.Debit == 0) {
		return respondErr(c, http.StatusBadRequest, "exactly one of credit/debit must be positive")
	}

	userID := c.Param("id")
	if req.Credit > 0 {
		if err := h.repos.User.Credit(userID, req.Credit); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respondErr(c, http.StatusNotFound, "user not found")
			}
			h.logger.Error("API credit failed", zap.String("user_id", userID), zap.Error(err))
			return respondErr(c, http.StatusInternalServerError, "credit failed")
		}
	} else {
		if err := h.repos.User.TryDebit(userID, req.Debit); err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return respondErr(c, http.StatusConflict, "insufficient balance")
			}
			h.logger.Error("API debit failed", zap.String("user_id", userID), zap.Error(err))
			return respondErr(c, http.StatusInternalServerError, "debit failed")
		}
	}

	user, err := h.repos.User.FindByID(userID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "failed to load user")
	}
	return respondOK(c, user)
}
