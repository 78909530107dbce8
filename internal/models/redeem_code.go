package models

import "time"

// RedeemCode maps to the `redeem_code` table. A code credits Amount link
// limit exactly once; rows are kept after consumption for audit.
type RedeemCode struct {
	Code       string     `gorm:"column:code;primaryKey;size:64" json:"code"`
	Amount     int        `gorm:"column:amount" json:"amount"`
	Consumed   bool       `gorm:"column:consumed;default:false" json:"consumed"`
	IssuedBy   string     `gorm:"column:issued_by;size:64" json:"issued_by"`
	ConsumedBy *string    `gorm:"column:consumed_by;size:64" json:"consumed_by"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at"`
}

func (RedeemCode) TableName() string {
	return "redeem_code"
}
