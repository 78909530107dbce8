package models

import "time"

// Order statuses as reported by the SMM panel. Composite status of a row
// is derived from the two sub-order statuses on every refresh.
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusInProgress = "In progress"
	OrderStatusPartial    = "Partial"
	OrderStatusError      = "Error"
	OrderStatusSuccess    = "Success"
)

// Order maps to the `order_record` table. One row per submitted link.
// Order1ID/Order2ID stay empty for sub-orders the panel never accepted;
// a row with both empty is a terminal Error.
type Order struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BatchID     string    `gorm:"column:batch_id;size:64;index" json:"batch_id"`
	UserID      string    `gorm:"column:user_id;size:64;index" json:"user_id"`
	Link        string    `gorm:"column:link;type:text" json:"link"`
	Service1ID  string    `gorm:"column:service1_id;size:32" json:"service1_id"`
	Service2ID  string    `gorm:"column:service2_id;size:32" json:"service2_id"`
	Order1ID    string    `gorm:"column:order1_id;size:64" json:"order1_id"`
	Order2ID    string    `gorm:"column:order2_id;size:64" json:"order2_id"`
	Quantity1   int       `gorm:"column:quantity1" json:"quantity1"`
	Quantity2   int       `gorm:"column:quantity2" json:"quantity2"`
	Status      string    `gorm:"column:status;size:32;default:'Pending'" json:"status"`
	StartCount1 int       `gorm:"column:start_count1;default:0" json:"start_count1"`
	StartCount2 int       `gorm:"column:start_count2;default:0" json:"start_count2"`
	Remains1    int       `gorm:"column:remains1;default:0" json:"remains1"`
	Remains2    int       `gorm:"column:remains2;default:0" json:"remains2"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "order_record"
}

// Placed reports whether at least one sub-order reached the panel.
func (o *Order) Placed() bool {
	return o.Order1ID != "" || o.Order2ID != ""
}

// Terminal reports whether the status can no longer change.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusSuccess || o.Status == OrderStatusError
}
