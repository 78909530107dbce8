package redeem

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"autoorderbot/internal/models"
	"autoorderbot/internal/pkg/utils"
	"autoorderbot/internal/repository"
)

var (
	// ErrCodeNotFound means the token maps to no issued code.
	ErrCodeNotFound = errors.New("redeem code not found")
	// ErrCodeConsumed means the code was already redeemed.
	ErrCodeConsumed = errors.New("redeem code already consumed")
	// ErrBadAmount rejects non-positive credit amounts at issue time.
	ErrBadAmount = errors.New("redeem amount must be positive")
)

// CodeStore is the registry's slice of the redeem code repository.
// Claim must be atomic: the consumed flip and the balance credit commit
// together or not at all.
type CodeStore interface {
	Create(code *models.RedeemCode) error
	FindByCode(code string) (*models.RedeemCode, error)
	Claim(code, userID string) (int, error)
}

// Registry issues and redeems single-use balance credit codes.
type Registry struct {
	codes  CodeStore
	logger *zap.Logger
}

func NewRegistry(codes CodeStore, logger *zap.Logger) *Registry {
	return &Registry{codes: codes, logger: logger}
}

// Issue creates a new unconsumed code carrying amount. The token is 16
// random bytes hex-encoded, 128 bits of entropy.
func (r *Registry) Issue(amount int, issuerID string) (*models.RedeemCode, error) {
	if amount <= 0 {
		return nil, ErrBadAmount
	}

	code := &models.RedeemCode{
		Code:     utils.RandomHex(16),
		Amount:   amount,
		IssuedBy: issuerID,
	}
	if err := r.codes.Create(code); err != nil {
		return nil, fmt.Errorf("store redeem code: %w", err)
	}

	r.logger.Info("redeem code issued",
		zap.String("issued_by", issuerID), zap.Int("amount", amount))
	return code, nil
}

// Redeem consumes a token for a user and returns the credited amount.
// Exactly one of any number of concurrent attempts on the same token
// succeeds; the rest get ErrCodeConsumed.
func (r *Registry) Redeem(token, userID string) (int, error) {
	amount, err := r.codes.Claim(token, userID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return 0, ErrCodeNotFound
		case errors.Is(err, ErrCodeNotFound):
			return 0, ErrCodeNotFound
		case errors.Is(err, repository.ErrCodeConsumed) || errors.Is(err, ErrCodeConsumed):
			return 0, ErrCodeConsumed
		}
		return 0, fmt.Errorf("claim redeem code: %w", err)
	}

	r.logger.Info("redeem code consumed",
		zap.String("user_id", userID), zap.Int("amount", amount))
	return amount, nil
}
