package models

import (
	"time"
)

// User represents an account holder in the system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Address     string `gorm:"size:500" json:"address,omitempty"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	PhoneNumber string `gorm:"size:50" json:"phone_number,omitempty"`

	// Customers linked through UserCustomerRelation; a user only sees
	// customers joined here.
	Customers []Customer `gorm:"many2many:user_customer_relations;" json:"-"`
}
