package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/query"
)

func TestCustomerAddAndGet(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	created := seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")
	if created.Status != models.CustomerStatusActive {
		t.Fatalf("new customer status = %s, want active", created.Status)
	}
	if created.Password == "customer-secret" {
		t.Fatal("stored password must be hashed")
	}

	got, err := svc.Get(ctx, owner, "acme@test")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Name != "Acme" {
		t.Fatalf("got %+v, want created customer", got)
	}

	var rel models.UserCustomerRelation
	if err := db.Where("user_id = ? AND customer_id = ?", owner.UserID, created.ID).First(&rel).Error; err != nil {
		t.Fatalf("ownership relation missing: %v", err)
	}
}

func TestCustomerDuplicateEmail(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)

	seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")
	_, err := svc.Add(context.Background(), owner, CustomerInput{Name: "Other", Email: "acme@test", Password: "x"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCustomerOwnershipFence(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	_, stranger := seedUser(t, db, "stranger@test", "password2")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")

	if _, err := svc.Get(ctx, stranger, "acme@test"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger get: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, stranger, "acme@test"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger delete: expected ErrForbidden, got %v", err)
	}

	page, err := svc.List(ctx, stranger, query.Params{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("stranger list: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("stranger list leaked %d customers", len(page.Items))
	}
}

func TestCustomerEditGatedByPassword(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")
	newName := "Acme Renamed"

	_, err := svc.Edit(ctx, owner, "acme@test", "wrong-secret", CustomerPatch{Name: &newName})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("wrong password: expected ErrForbidden, got %v", err)
	}
	got, err := svc.Get(ctx, owner, "acme@test")
	if err != nil || got.Name != "Acme" {
		t.Fatalf("customer changed despite rejected edit: %+v, %v", got, err)
	}

	updated, err := svc.Edit(ctx, owner, "acme@test", "customer-secret", CustomerPatch{Name: &newName})
	if err != nil {
		t.Fatalf("edit with correct password: %v", err)
	}
	if updated.Name != newName {
		t.Fatalf("name = %s, want %s", updated.Name, newName)
	}
}

func TestCustomerChangeStatus(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")

	updated, err := svc.ChangeStatus(ctx, owner, "acme@test", models.CustomerStatusBanned)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != models.CustomerStatusBanned {
		t.Fatalf("status = %s, want banned", updated.Status)
	}

	if _, err := svc.ChangeStatus(ctx, owner, "acme@test", "vip"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

func TestCustomerDeleteBlockedByInvoices(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	invoices := NewInvoiceService(db)
	ctx := context.Background()

	customer := seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")
	_, err := invoices.Create(ctx, owner, InvoiceInput{
		CustomerID: customer.ID,
		StartDate:  time.Now().AddDate(0, -1, 0),
		EndDate:    time.Now(),
		Rows:       []RowInput{{Service: "consulting", Quantity: 1, Amount: 100}},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	if err := svc.Delete(ctx, owner, "acme@test"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// blocked delete must leave both the customer and its invoices intact
	if _, err := svc.Get(ctx, owner, "acme@test"); err != nil {
		t.Fatalf("customer gone after blocked delete: %v", err)
	}
	var count int64
	if err := db.Model(&models.Invoice{}).Where("customer_id = ?", customer.ID).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("invoice count = %d, %v; want 1", count, err)
	}
}

func TestCustomerDeleteInvalidatesCache(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	seedOwnedCustomer(t, svc, owner, "Acme", "acme@test")
	// warm the cache
	if _, err := svc.Get(ctx, owner, "acme@test"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := svc.Delete(ctx, owner, "acme@test"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, "acme@test"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCustomerListSearchAndPaging(t *testing.T) {
	db := setupServiceTestDB(t)
	_, owner := seedUser(t, db, "owner@test", "password1")
	svc := newTestCustomerService(db)
	ctx := context.Background()

	seedOwnedCustomer(t, svc, owner, "Alpha Trading", "alpha@test")
	seedOwnedCustomer(t, svc, owner, "Beta Works", "beta@test")
	seedOwnedCustomer(t, svc, owner, "alpha llc", "alphallc@test")

	page, err := svc.List(ctx, owner, query.Params{Page: 1, PageSize: 10, Search: "Alpha"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Alpha Trading" {
		t.Fatalf("search result = %+v, want only Alpha Trading", page.Items)
	}
	if page.Meta.TotalPages != 1 {
		t.Fatalf("totalPages = %d, want 1", page.Meta.TotalPages)
	}

	if _, err := svc.List(ctx, owner, query.Params{Page: 0, PageSize: 10}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for page 0, got %v", err)
	}
}

func TestCustomerRequiresIdentity(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestCustomerService(db)
	ctx := context.Background()

	if _, err := svc.Get(ctx, auth.UserInfo{}, "acme@test"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.List(ctx, auth.UserInfo{}, query.Params{Page: 1, PageSize: 10}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
