package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleCustomer = "Customer"
	RoleAdmin    = "Admin"
)

// User is an account in the relational user store, optionally linked to a Customer row.
type User struct {
	ID             uint      `gorm:"primaryKey"`
	Username       string    `gorm:"size:50;uniqueIndex;not null"`
	PasswordHash   string    `gorm:"not null"`
	Role           string    `gorm:"size:20;default:'Customer';not null"`
	Email          string    `gorm:"size:255;uniqueIndex;not null"`
	CustomerRowKey *string   `gorm:"size:64"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	LastLogin      *time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) CustomerID() string {
	if u.CustomerRowKey == nil {
		return ""
	}
	return *u.CustomerRowKey
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}
