package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autoorderbot/internal/models"
)

// ErrInsufficientBalance is returned when a conditional debit finds less
// balance than requested. Callers treat it as a user-facing rejection,
// not a system fault.
var ErrInsufficientBalance = errors.New("insufficient balance")

// UserRepository handles user rows and doubles as the account ledger.
// All balance mutations are single atomic statements; a read-then-write
// pair would let two concurrent sessions overspend the same account.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID finds a user by Telegram chat ID.
func (r *UserRepository) FindByID(chatID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate inserts the user if missing and returns the stored row.
// An existing row is never overwritten, so the balance survives repeated
// /start commands and races between two first messages.
func (r *UserRepository) GetOrCreate(user *models.User) (*models.User, error) {
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error; err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return r.FindByID(user.ID)
}

// FindAll returns users ordered by balance, paginated.
func (r *UserRepository) FindAll(limit, page int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	db := r.db.Model(&models.User{})
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

	if err := db.Limit(limit).Offset(offset).Order("balance DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Balance returns the current balance for a user.
func (r *UserRepository) Balance(chatID string) (int, error) {
	user, err := r.FindByID(chatID)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

// TryDebit atomically checks and decrements the balance. The WHERE guard
// makes check and decrement one statement, so the balance can never be
// observed below zero no matter how many debits race.
func (r *UserRepository) TryDebit(chatID string, amount int) error {
	if amount <= 0 {
		return nil
	}
	res := r.db.Model(&models.User{}).
		Where("id = ? AND balance >= ?", chatID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// DebitUpTo debits at most amount, clamped to the available balance, and
// returns what was actually taken. Used by end-of-batch reconciliation
// when a concurrent spend shrank the balance below the success count.
func (r *UserRepository) DebitUpTo(chatID string, amount int) (int, error) {
	for amount > 0 {
		err := r.TryDebit(chatID, amount)
		if err == nil {
			return amount, nil
		}
		if !errors.Is(err, ErrInsufficientBalance) {
			return 0, err
		}
		balance, err := r.Balance(chatID)
		if err != nil {
			return 0, err
		}
		if balance < amount {
			amount = balance
		}
		// Same balance but the conditional update lost: retry.
	}
	return 0, nil
}

// Credit atomically adds to the user balance.
func (r *UserRepository) Credit(chatID string, amount int) error {
	if amount <= 0 {
		return nil
	}
	res := r.db.Model(&models.User{}).
		Where("id = ?", chatID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetAdmin flips the admin flag.
func (r *UserRepository) SetAdmin(chatID string, isAdmin bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", chatID).
		Update("is_admin", isAdmin).Error
}

// Count returns the total number of users.
func (r *UserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
