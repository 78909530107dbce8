package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"autoorderbot/internal/models"
)

// ErrCodeConsumed is returned when a claim races against an earlier
// redemption of the same code.
var ErrCodeConsumed = errors.New("redeem code already consumed")

// RedeemCodeRepository handles redeem code database operations.
type RedeemCodeRepository struct {
	db *gorm.DB
}

func NewRedeemCodeRepository(db *gorm.DB) *RedeemCodeRepository {
	return &RedeemCodeRepository{db: db}
}

// Create inserts a new redeem code.
func (r *RedeemCodeRepository) Create(code *models.RedeemCode) error {
	return r.db.Create(code).Error
}

// FindByCode returns a code row by its token.
func (r *RedeemCodeRepository) FindByCode(code string) (*models.RedeemCode, error) {
	var row models.RedeemCode
	if err := r.db.Where("code = ?", code).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindAll returns codes with pagination, newest first.
func (r *RedeemCodeRepository) FindAll(limit, page int) ([]models.RedeemCode, int64, error) {
	var codes []models.RedeemCode
	var total int64

	db := r.db.Model(&models.RedeemCode{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// CountConsumed returns how many codes have been redeemed.
func (r *RedeemCodeRepository) CountConsumed() (total, consumed int64, err error) {
	if err = r.db.Model(&models.RedeemCode{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&models.RedeemCode{}).Where("consumed = ?", true).Count(&consumed).Error
	return total, consumed, err
}

// Claim marks the code consumed and credits the user's balance in one
// transaction. The conditional update on `consumed` is the claim gate:
// only one of any number of concurrent redemptions flips it, and the
// credit commits or rolls back together with the flip, so a code can
// never end up consumed without its credit or credited twice.
func (r *RedeemCodeRepository) Claim(code, userID string) (int, error) {
	var amount int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var row models.RedeemCode
		if err := tx.Where("code = ?", code).First(&row).Error; err != nil {
			return err
		}
		if row.Consumed {
			return ErrCodeConsumed
		}

		now := time.Now()
		res := tx.Model(&models.RedeemCode{}).
			Where("code = ? AND consumed = ?", code, false).
			Updates(map[string]interface{}{
				"consumed":    true,
				"consumed_by": userID,
				"consumed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCodeConsumed
		}

		credit := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", row.Amount))
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		amount = row.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}
