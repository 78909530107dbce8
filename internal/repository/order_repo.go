package repository

import (
	"time"

	"gorm.io/gorm"

	"autoorderbot/internal/models"
)

// OrderRepository handles order record database operations.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order row.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// FindByID returns an order by its record ID.
func (r *OrderRepository) FindByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID returns the most recent orders for a user.
func (r *OrderRepository) FindByUserID(userID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []models.Order
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}

// FindAll returns orders with pagination and optional user filter.
func (r *OrderRepository) FindAll(limit, page int, userID string) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	db := r.db.Model(&models.Order{})
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	}

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

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdatePollResult overwrites the composite status and the raw per-service
// figures with freshly fetched values.
func (r *OrderRepository) UpdatePollResult(id uint, status string, start1, remains1, start2, remains2 int) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"start_count1": start1,
		"remains1":     remains1,
		"start_count2": start2,
		"remains2":     remains2,
	}).Error
}

// FindRefreshable returns non-terminal orders created after cutoff, oldest
// poll first. Used by the cron status sync.
func (r *OrderRepository) FindRefreshable(cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 25
	}
	var orders []models.Order
	err := r.db.
		Where("status NOT IN ? AND created_at > ?",
			[]string{models.OrderStatusSuccess, models.OrderStatusError}, cutoff).
		Where("order1_id != '' OR order2_id != ''").
		Order("updated_at ASC").Limit(limit).Find(&orders).Error
	return orders, err
}

// Count returns the total number of order records.
func (r *OrderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}

// CountByUserID counts total orders for a user.
func (r *OrderRepository) CountByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
