package models

import "time"

// User maps to the `user` table.
// Primary key is the Telegram chat ID stored as string.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Username  string    `gorm:"column:username;size:255" json:"username"`
	FirstName string    `gorm:"column:first_name;size:255" json:"first_name"`
	Balance   int       `gorm:"column:balance;default:0" json:"balance"`
	IsAdmin   bool      `gorm:"column:is_admin;default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "user"
}
