package models

import (
	"time"

	"gorm.io/gorm"
)

// CustomerStatus is independent metadata on a customer; changing it does not
// affect invoice visibility.
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusBanned   CustomerStatus = "banned"
)

// Valid reports whether s is a known status value.
func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusInactive, CustomerStatusBanned:
		return true
	}
	return false
}

// Customer is a billable party created by a user. Name is the display field
// used by list search.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string         `gorm:"size:255;not null" json:"name"`
	Address     string         `gorm:"size:500" json:"address,omitempty"`
	Email       string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	PhoneNumber string         `gorm:"size:50" json:"phone_number,omitempty"`
	Status      CustomerStatus `gorm:"size:20;default:'active'" json:"status"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID" json:"-"`
}

// UserCustomerRelation links users to the customers they may see and operate
// on (the ownership fence). Enforced at the service boundary, not the store.
type UserCustomerRelation struct {
	UserID     uint `gorm:"primaryKey" json:"user_id"`
	CustomerID uint `gorm:"primaryKey" json:"customer_id"`
}
