package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/query"
)

func TestInvoiceCreateComputesTotals(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")

	invoice, err := svc.Create(ctx, owner, InvoiceInput{
		CustomerID: customer.ID,
		StartDate:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Comment:    "july work",
		Rows: []RowInput{
			{Service: "consulting", Quantity: 3, Amount: 12.50},
			{Service: "support", Quantity: 3, Amount: 12.50},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if invoice.Status != models.InvoiceStatusCreated {
		t.Fatalf("status = %s, want created", invoice.Status)
	}
	if invoice.TotalSum != 75.00 {
		t.Fatalf("total = %v, want 75.00", invoice.TotalSum)
	}
	for i, r := range invoice.Rows {
		if r.Sum != 37.50 {
			t.Fatalf("row %d sum = %v, want 37.50", i, r.Sum)
		}
	}

	got, err := svc.Get(ctx, owner, invoice.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Rows) != 2 || got.TotalSum != 75.00 {
		t.Fatalf("persisted invoice = %+v, want 2 rows and total 75.00", got)
	}
}

func TestInvoiceCreateValidation(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")

	cases := []InvoiceInput{
		{CustomerID: customer.ID},                                                            // no rows
		{CustomerID: 0, Rows: []RowInput{{Service: "x", Quantity: 1, Amount: 1}}},            // no customer
		{CustomerID: customer.ID, Rows: []RowInput{{Service: "", Quantity: 1, Amount: 1}}},   // empty service
		{CustomerID: customer.ID, Rows: []RowInput{{Service: "x", Quantity: -1, Amount: 1}}}, // negative quantity
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, owner, in); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestInvoiceDeleteGuard(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")
	newInvoice := func() models.Invoice {
		inv, err := svc.Create(ctx, owner, InvoiceInput{
			CustomerID: customer.ID,
			StartDate:  time.Now().AddDate(0, -1, 0),
			EndDate:    time.Now(),
			Rows:       []RowInput{{Service: "consulting", Quantity: 1, Amount: 100}},
		})
		if err != nil {
			t.Fatalf("create invoice: %v", err)
		}
		return inv
	}

	for _, status := range []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusReceived, models.InvoiceStatusRejected} {
		inv := newInvoice()
		if _, err := svc.ChangeStatus(ctx, owner, inv.ID, status); err != nil {
			t.Fatalf("change status to %s: %v", status, err)
		}
		if err := svc.Delete(ctx, owner, inv.ID); !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("delete %s invoice: expected ErrConflict, got %v", status, err)
		}
		if _, err := svc.Get(ctx, owner, inv.ID); err != nil {
			t.Fatalf("%s invoice gone after blocked delete: %v", status, err)
		}
	}

	for _, status := range []models.InvoiceStatus{models.InvoiceStatusCreated, models.InvoiceStatusPaid, models.InvoiceStatusCancelled} {
		inv := newInvoice()
		if _, err := svc.ChangeStatus(ctx, owner, inv.ID, status); err != nil {
			t.Fatalf("change status to %s: %v", status, err)
		}
		if err := svc.Delete(ctx, owner, inv.ID); err != nil {
			t.Fatalf("delete %s invoice: %v", status, err)
		}
		if _, err := svc.Get(ctx, owner, inv.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("%s invoice still readable after delete: %v", status, err)
		}
	}
}

func TestInvoiceReplaceRows(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")
	inv, err := svc.Create(ctx, owner, InvoiceInput{
		CustomerID: customer.ID,
		StartDate:  time.Now().AddDate(0, -1, 0),
		EndDate:    time.Now(),
		Rows:       []RowInput{{Service: "consulting", Quantity: 1, Amount: 100}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	replaced, err := svc.ReplaceRows(ctx, owner, inv.ID, []RowInput{
		{Service: "design", Quantity: 2, Amount: 40},
		{Service: "hosting", Quantity: 1, Amount: 20},
	})
	if err != nil {
		t.Fatalf("replace rows: %v", err)
	}
	if replaced.TotalSum != 100.00 {
		t.Fatalf("total = %v, want 100.00", replaced.TotalSum)
	}

	got, err := svc.Get(ctx, owner, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(got.Rows))
	}
	if got.TotalSum != 100.00 {
		t.Fatalf("persisted total = %v, want 100.00", got.TotalSum)
	}
	for _, r := range got.Rows {
		if r.Service == "consulting" {
			t.Fatal("old row survived replacement")
		}
	}

	if _, err := svc.ReplaceRows(ctx, owner, inv.ID, nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("empty rows: expected ErrInvalidArgument, got %v", err)
	}
}

func TestInvoiceEditAndOwnershipFence(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	_, stranger := seedUser(t, db, "stranger@test", "password2")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	mine := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")
	theirs := seedOwnedCustomer(t, customers, stranger, "Globex", "globex@test")

	inv, err := svc.Create(ctx, owner, InvoiceInput{
		CustomerID: mine.ID,
		StartDate:  time.Now().AddDate(0, -1, 0),
		EndDate:    time.Now(),
		Rows:       []RowInput{{Service: "consulting", Quantity: 1, Amount: 100}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	comment := "updated"
	updated, err := svc.Edit(ctx, owner, inv.ID, InvoicePatch{Comment: &comment})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Comment != "updated" {
		t.Fatalf("comment = %q, want updated", updated.Comment)
	}

	// the caller cannot read or move invoices across the ownership fence
	if _, err := svc.Get(ctx, stranger, inv.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger get: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Edit(ctx, owner, inv.ID, InvoicePatch{CustomerID: &theirs.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("move to unowned customer: expected ErrForbidden, got %v", err)
	}

	badStatus := models.InvoiceStatus("shredded")
	if _, err := svc.Edit(ctx, owner, inv.ID, InvoicePatch{Status: &badStatus}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("unknown status: expected ErrInvalidArgument, got %v", err)
	}
}

func TestInvoiceListSearchByComment(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	customers := newTestCustomerService(db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, customers, owner, "Acme", "acme@test")
	for _, comment := range []string{"July retainer", "august retainer", "July extras"} {
		_, err := svc.Create(ctx, owner, InvoiceInput{
			CustomerID: customer.ID,
			StartDate:  time.Now().AddDate(0, -1, 0),
			EndDate:    time.Now(),
			Comment:    comment,
			Rows:       []RowInput{{Service: "work", Quantity: 1, Amount: 10}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, owner, query.Params{Page: 1, PageSize: 10, Search: "July"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("search matched %d invoices, want 2", len(page.Items))
	}
	for _, inv := range page.Items {
		if len(inv.Rows) == 0 {
			t.Fatalf("invoice %d listed without rows", inv.ID)
		}
	}
	if page.Meta.TotalPages != 1 {
		t.Fatalf("totalPages = %d, want 1", page.Meta.TotalPages)
	}
}

func TestInvoiceNotFound(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := NewInvoiceService(db)

	if _, err := svc.Get(context.Background(), owner, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
