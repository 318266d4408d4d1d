// Package policy implements the ownership fence: a user may only see and
// operate on customers (and their invoices) linked through
// UserCustomerRelation.
package policy

import (
	"context"
	"fmt"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/models"
	"gorm.io/gorm"
)

// OwnedCustomerIDs returns a subquery selecting the ids of customers linked
// to userID. Compose it into list queries with `customers.id IN (?)`.
func OwnedCustomerIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.UserCustomerRelation{}).
		Select("customer_id").
		Where("user_id = ?", userID)
}

// OwnsCustomer reports whether userID is linked to customerID.
func OwnsCustomer(ctx context.Context, db *gorm.DB, userID, customerID uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.UserCustomerRelation{}).
		Where("user_id = ? AND customer_id = ?", userID, customerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: ownership lookup: %v", apperr.ErrUnavailable, err)
	}
	return count > 0, nil
}

// Link records that userID may operate on customerID.
func Link(ctx context.Context, db *gorm.DB, userID, customerID uint) error {
	rel := models.UserCustomerRelation{UserID: userID, CustomerID: customerID}
	if err := db.WithContext(ctx).Create(&rel).Error; err != nil {
		return fmt.Errorf("%w: link customer: %v", apperr.ErrUnavailable, err)
	}
	return nil
}

// Unlink removes every relation pointing at customerID. Called when the
// customer is deleted.
func Unlink(ctx context.Context, db *gorm.DB, customerID uint) error {
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.UserCustomerRelation{}).Error
	if err != nil {
		return fmt.Errorf("%w: unlink customer: %v", apperr.ErrUnavailable, err)
	}
	return nil
}
