package services

import (
	"context"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/policy"
	"github.com/schofire/invoiceapi/internal/query"
	"gorm.io/gorm"
)

// ReportService assembles flat report rows over the caller's customers and
// invoices. Rows are served as JSON; file encodings are a client concern.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// CustomerReportRow is one line of the customer report.
type CustomerReportRow struct {
	CustomerID   uint   `json:"customer_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	InvoiceCount int64  `json:"invoice_count"`
}

// WorkDoneRow is one line of the work-done report: a paid invoice and the
// period it covers.
type WorkDoneRow struct {
	InvoiceID    uint      `json:"invoice_id"`
	CustomerName string    `json:"customer_name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	TotalSum     float64   `json:"total_sum"`
}

// InvoiceReportRow is one line of the invoice report.
type InvoiceReportRow struct {
	InvoiceID    uint                 `json:"invoice_id"`
	CustomerName string               `json:"customer_name"`
	Status       models.InvoiceStatus `json:"status"`
	TotalSum     float64              `json:"total_sum"`
	CreatedAt    time.Time            `json:"created_at"`
}

// CustomerReport lists the caller's customers with their invoice counts.
func (s *ReportService) CustomerReport(ctx context.Context, user auth.UserInfo, p query.Params) (query.Page[CustomerReportRow], error) {
	if !user.Valid() {
		return query.Page[CustomerReportRow]{}, apperr.ErrUnauthenticated
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.Customer{}).
			Select("customers.id AS customer_id, customers.name, customers.email, customers.phone_number, ("+invoiceCountExpr+") AS invoice_count").
			Where("customers.id IN (?)", policy.OwnedCustomerIDs(s.db, user.UserID))
	}
	return query.Run[CustomerReportRow](base, p, query.Spec{
		SearchColumn: "customers.name",
		OrderExpr:    invoiceCountExpr,
	})
}

// WorkDoneReport lists the caller's paid invoices with their periods.
func (s *ReportService) WorkDoneReport(ctx context.Context, user auth.UserInfo, p query.Params) (query.Page[WorkDoneRow], error) {
	if !user.Valid() {
		return query.Page[WorkDoneRow]{}, apperr.ErrUnauthenticated
	}
	base := func() *gorm.DB {
		return s.invoiceRows(ctx, user).
			Select("invoices.id AS invoice_id, customers.name AS customer_name, invoices.start_date, invoices.end_date, invoices.total_sum").
			Where("invoices.status = ?", models.InvoiceStatusPaid)
	}
	return query.Run[WorkDoneRow](base, p, query.Spec{
		SearchColumn: "customers.name",
		OrderExpr:    customerMatchExpr,
	})
}

// InvoiceReport lists every invoice of the caller with status and total.
func (s *ReportService) InvoiceReport(ctx context.Context, user auth.UserInfo, p query.Params) (query.Page[InvoiceReportRow], error) {
	if !user.Valid() {
		return query.Page[InvoiceReportRow]{}, apperr.ErrUnauthenticated
	}
	base := func() *gorm.DB {
		return s.invoiceRows(ctx, user).
			Select("invoices.id AS invoice_id, customers.name AS customer_name, invoices.status, invoices.total_sum, invoices.created_at")
	}
	return query.Run[InvoiceReportRow](base, p, query.Spec{
		SearchColumn: "customers.name",
		OrderExpr:    customerMatchExpr,
	})
}

func (s *ReportService) invoiceRows(ctx context.Context, user auth.UserInfo) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Joins("JOIN customers ON customers.id = invoices.customer_id").
		Where("invoices.customer_id IN (?)", policy.OwnedCustomerIDs(s.db, user.UserID))
}
