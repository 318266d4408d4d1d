package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/policy"
	"github.com/schofire/invoiceapi/internal/query"
	"gorm.io/gorm"
)

// customerMatchExpr mirrors the sort key the invoice listing has always
// used: the count of live customers matching each invoice's customer id.
const customerMatchExpr = "SELECT COUNT(*) FROM customers WHERE customers.id = invoices.customer_id AND customers.deleted_at IS NULL"

// InvoiceService manages invoices. Access is fenced through the owning
// customer's relation to the caller.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// RowInput is one line item of an invoice; Sum is derived server-side.
type RowInput struct {
	Service  string
	Quantity float64
	Amount   float64
}

// InvoiceInput carries the fields needed to create an invoice.
type InvoiceInput struct {
	CustomerID uint
	StartDate  time.Time
	EndDate    time.Time
	Comment    string
	Rows       []RowInput
}

// InvoicePatch carries optional field updates; nil means keep current.
// Rows are updated through ReplaceRows, never here, so totals cannot drift.
type InvoicePatch struct {
	CustomerID *uint
	StartDate  *time.Time
	EndDate    *time.Time
	Comment    *string
	Status     *models.InvoiceStatus
}

// Create builds an invoice with derived row sums and total.
func (s *InvoiceService) Create(ctx context.Context, user auth.UserInfo, in InvoiceInput) (models.Invoice, error) {
	if !user.Valid() {
		return models.Invoice{}, apperr.ErrUnauthenticated
	}
	if in.CustomerID == 0 || len(in.Rows) == 0 {
		return models.Invoice{}, fmt.Errorf("%w: customer_id and rows are required", apperr.ErrInvalidArgument)
	}
	for _, r := range in.Rows {
		if r.Service == "" || r.Quantity < 0 || r.Amount < 0 {
			return models.Invoice{}, fmt.Errorf("%w: rows need a service and non-negative quantity/amount", apperr.ErrInvalidArgument)
		}
	}
	if err := s.requireOwnership(ctx, user, in.CustomerID); err != nil {
		return models.Invoice{}, err
	}

	invoice := models.Invoice{
		CustomerID: in.CustomerID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Comment:    in.Comment,
		Status:     models.InvoiceStatusCreated,
	}
	for _, r := range in.Rows {
		invoice.Rows = append(invoice.Rows, models.InvoiceRow{
			Service:  r.Service,
			Quantity: r.Quantity,
			Amount:   r.Amount,
		})
	}
	invoice.RecalculateTotals()

	if err := s.db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return models.Invoice{}, fmt.Errorf("%w: create invoice: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("invoice created", "invoice_id", invoice.ID, "customer_id", invoice.CustomerID, "total", invoice.TotalSum)
	return invoice, nil
}

// Get returns an invoice with its rows if the caller owns its customer.
func (s *InvoiceService) Get(ctx context.Context, user auth.UserInfo, id uint) (models.Invoice, error) {
	return s.findInvoice(ctx, user, id)
}

// Edit applies a partial update. Moving the invoice to another customer
// requires the caller to own the target customer as well.
func (s *InvoiceService) Edit(ctx context.Context, user auth.UserInfo, id uint, patch InvoicePatch) (models.Invoice, error) {
	invoice, err := s.findInvoice(ctx, user, id)
	if err != nil {
		return models.Invoice{}, err
	}

	if patch.CustomerID != nil && *patch.CustomerID != invoice.CustomerID {
		if err := s.requireOwnership(ctx, user, *patch.CustomerID); err != nil {
			return models.Invoice{}, err
		}
		invoice.CustomerID = *patch.CustomerID
	}
	if patch.StartDate != nil {
		invoice.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		invoice.EndDate = *patch.EndDate
	}
	if patch.Comment != nil {
		invoice.Comment = *patch.Comment
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Invoice{}, fmt.Errorf("%w: unknown invoice status %q", apperr.ErrInvalidArgument, *patch.Status)
		}
		invoice.Status = *patch.Status
	}

	if err := s.db.WithContext(ctx).Omit("Rows").Save(&invoice).Error; err != nil {
		return models.Invoice{}, fmt.Errorf("%w: update invoice: %v", apperr.ErrUnavailable, err)
	}
	return invoice, nil
}

// ChangeStatus sets only the invoice status.
func (s *InvoiceService) ChangeStatus(ctx context.Context, user auth.UserInfo, id uint, status models.InvoiceStatus) (models.Invoice, error) {
	return s.Edit(ctx, user, id, InvoicePatch{Status: &status})
}

// ReplaceRows swaps the invoice's row set and recomputes every row sum and
// the invoice total in one transaction.
func (s *InvoiceService) ReplaceRows(ctx context.Context, user auth.UserInfo, id uint, rows []RowInput) (models.Invoice, error) {
	invoice, err := s.findInvoice(ctx, user, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if len(rows) == 0 {
		return models.Invoice{}, fmt.Errorf("%w: rows are required", apperr.ErrInvalidArgument)
	}
	for _, r := range rows {
		if r.Service == "" || r.Quantity < 0 || r.Amount < 0 {
			return models.Invoice{}, fmt.Errorf("%w: rows need a service and non-negative quantity/amount", apperr.ErrInvalidArgument)
		}
	}

	invoice.Rows = nil
	for _, r := range rows {
		invoice.Rows = append(invoice.Rows, models.InvoiceRow{
			InvoiceID: invoice.ID,
			Service:   r.Service,
			Quantity:  r.Quantity,
			Amount:    r.Amount,
		})
	}
	invoice.RecalculateTotals()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceRow{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&invoice.Rows).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("total_sum", invoice.TotalSum).Error
	})
	if err != nil {
		return models.Invoice{}, fmt.Errorf("%w: replace rows: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("invoice rows replaced", "invoice_id", invoice.ID, "rows", len(rows), "total", invoice.TotalSum)
	return invoice, nil
}

// Delete removes an invoice unless it has left draft state: sent, received,
// and rejected invoices return Conflict and stay unchanged.
func (s *InvoiceService) Delete(ctx context.Context, user auth.UserInfo, id uint) error {
	invoice, err := s.findInvoice(ctx, user, id)
	if err != nil {
		return err
	}
	if !invoice.Deletable() {
		return fmt.Errorf("%w: invoice is %s", apperr.ErrConflict, invoice.Status)
	}
	if err := s.db.WithContext(ctx).Delete(&invoice).Error; err != nil {
		return fmt.Errorf("%w: delete invoice: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("invoice deleted", "invoice_id", invoice.ID, "user_id", user.UserID)
	return nil
}

// List returns a page of the caller's invoices, searched by comment.
func (s *InvoiceService) List(ctx context.Context, user auth.UserInfo, p query.Params) (query.Page[models.Invoice], error) {
	if !user.Valid() {
		return query.Page[models.Invoice]{}, apperr.ErrUnauthenticated
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.Invoice{}).
			Preload("Rows").
			Where("invoices.customer_id IN (?)", policy.OwnedCustomerIDs(s.db, user.UserID))
	}
	return query.Run[models.Invoice](base, p, query.Spec{
		SearchColumn: "invoices.comment",
		OrderExpr:    customerMatchExpr,
	})
}

func (s *InvoiceService) findInvoice(ctx context.Context, user auth.UserInfo, id uint) (models.Invoice, error) {
	if !user.Valid() {
		return models.Invoice{}, apperr.ErrUnauthenticated
	}
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Preload("Rows").First(&invoice, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Invoice{}, fmt.Errorf("%w: invoice %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return models.Invoice{}, fmt.Errorf("%w: find invoice: %v", apperr.ErrUnavailable, err)
	}
	if err := s.requireOwnership(ctx, user, invoice.CustomerID); err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

func (s *InvoiceService) requireOwnership(ctx context.Context, user auth.UserInfo, customerID uint) error {
	owns, err := policy.OwnsCustomer(ctx, s.db, user.UserID, customerID)
	if err != nil {
		return err
	}
	if !owns {
		return fmt.Errorf("%w: customer %d", apperr.ErrForbidden, customerID)
	}
	return nil
}
