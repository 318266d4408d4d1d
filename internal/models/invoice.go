package models

import (
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusCreated   InvoiceStatus = "created"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusReceived  InvoiceStatus = "received"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusSent, InvoiceStatusReceived,
		InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusRejected:
		return true
	}
	return false
}

// Invoice is a billing document over a service period. TotalSum is derived
// from its rows and must never be set independently.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	StartDate time.Time     `gorm:"not null" json:"start_date"`
	EndDate   time.Time     `gorm:"not null" json:"end_date"`
	Status    InvoiceStatus `gorm:"size:20;default:'created'" json:"status"`
	Comment   string        `gorm:"type:text" json:"comment,omitempty"`

	TotalSum float64 `gorm:"not null" json:"total_sum"`

	Rows []InvoiceRow `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"rows,omitempty"`
}

// Deletable reports whether the invoice may still be removed. An invoice
// that has left draft state (sent, received, rejected) is immutable for
// deletion.
func (i *Invoice) Deletable() bool {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusReceived, InvoiceStatusRejected:
		return false
	}
	return true
}

// RecalculateTotals recomputes every row sum and the invoice total.
// Must be called after any row mutation.
func (i *Invoice) RecalculateTotals() {
	var total float64
	for idx := range i.Rows {
		i.Rows[idx].Recalculate()
		total += i.Rows[idx].Sum
	}
	i.TotalSum = total
}

// InvoiceRow is a line item owned exclusively by one invoice.
type InvoiceRow struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	Service  string  `gorm:"size:500;not null" json:"service"`
	Quantity float64 `gorm:"type:decimal(10,3);not null" json:"quantity"`
	Amount   float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Sum      float64 `gorm:"not null" json:"sum"`
}

// Recalculate derives Sum from Quantity and Amount.
func (r *InvoiceRow) Recalculate() {
	r.Sum = r.Quantity * r.Amount
}
