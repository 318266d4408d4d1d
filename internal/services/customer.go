package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/cache"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/policy"
	"github.com/schofire/invoiceapi/internal/query"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// invoiceCountExpr is the sort key for customer listings: the number of
// live invoices attached to each customer.
const invoiceCountExpr = "SELECT COUNT(*) FROM invoices WHERE invoices.customer_id = customers.id AND invoices.deleted_at IS NULL"

// CustomerService manages customer records on behalf of an authenticated
// user. Every method takes the caller identity explicitly; there is no
// per-service user state.
type CustomerService struct {
	db       *gorm.DB
	cache    *cache.Cache[models.Customer]
	cacheTTL time.Duration
}

func NewCustomerService(db *gorm.DB, c *cache.Cache[models.Customer], cacheTTL time.Duration) *CustomerService {
	return &CustomerService{db: db, cache: c, cacheTTL: cacheTTL}
}

// CustomerInput carries the fields needed to create a customer.
type CustomerInput struct {
	Name        string
	Address     string
	Email       string
	Password    string
	PhoneNumber string
}

// CustomerPatch carries optional field updates; nil means keep current.
type CustomerPatch struct {
	Name        *string
	Address     *string
	PhoneNumber *string
}

// Add creates a customer owned by the caller and links it through the
// ownership relation.
func (s *CustomerService) Add(ctx context.Context, user auth.UserInfo, in CustomerInput) (models.Customer, error) {
	if !user.Valid() {
		return models.Customer{}, apperr.ErrUnauthenticated
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return models.Customer{}, fmt.Errorf("%w: name, email and password are required", apperr.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Customer{}, fmt.Errorf("%w: hash password: %v", apperr.ErrUnavailable, err)
	}

	customer := models.Customer{
		Name:        in.Name,
		Address:     in.Address,
		Email:       in.Email,
		Password:    string(hash),
		PhoneNumber: in.PhoneNumber,
		Status:      models.CustomerStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Customer{}, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
		}
		return models.Customer{}, fmt.Errorf("%w: create customer: %v", apperr.ErrUnavailable, err)
	}
	if err := policy.Link(ctx, s.db, user.UserID, customer.ID); err != nil {
		return models.Customer{}, err
	}

	slog.Info("customer added", "email", customer.Email, "user_id", user.UserID)
	s.cache.Set(customer.Email, customer, s.cacheTTL)
	return customer, nil
}

// Get returns a customer by email if the caller owns it.
func (s *CustomerService) Get(ctx context.Context, user auth.UserInfo, email string) (models.Customer, error) {
	return s.findCustomer(ctx, user, email)
}

// Edit applies a partial update after the supplied password has been
// verified against the customer's stored hash.
func (s *CustomerService) Edit(ctx context.Context, user auth.UserInfo, email, password string, patch CustomerPatch) (models.Customer, error) {
	customer, err := s.findCustomer(ctx, user, email)
	if err != nil {
		return models.Customer{}, err
	}
	if err := verifySecret(customer.Password, password); err != nil {
		return models.Customer{}, err
	}

	if patch.Name != nil {
		customer.Name = *patch.Name
	}
	if patch.Address != nil {
		customer.Address = *patch.Address
	}
	if patch.PhoneNumber != nil {
		customer.PhoneNumber = *patch.PhoneNumber
	}

	if err := s.db.WithContext(ctx).Save(&customer).Error; err != nil {
		return models.Customer{}, fmt.Errorf("%w: update customer: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("customer updated", "email", customer.Email, "user_id", user.UserID)
	s.cache.Set(customer.Email, customer, s.cacheTTL)
	return customer, nil
}

// ChangeStatus sets the customer status. Status is independent metadata;
// it does not affect invoice visibility.
func (s *CustomerService) ChangeStatus(ctx context.Context, user auth.UserInfo, email string, status models.CustomerStatus) (models.Customer, error) {
	if !status.Valid() {
		return models.Customer{}, fmt.Errorf("%w: unknown customer status %q", apperr.ErrInvalidArgument, status)
	}
	customer, err := s.findCustomer(ctx, user, email)
	if err != nil {
		return models.Customer{}, err
	}

	customer.Status = status
	if err := s.db.WithContext(ctx).Save(&customer).Error; err != nil {
		return models.Customer{}, fmt.Errorf("%w: update customer status: %v", apperr.ErrUnavailable, err)
	}
	s.cache.Set(customer.Email, customer, s.cacheTTL)
	return customer, nil
}

// Delete removes a customer. Blocked with Conflict while the customer still
// has invoices; the customer and its invoices are left unchanged.
func (s *CustomerService) Delete(ctx context.Context, user auth.UserInfo, email string) error {
	customer, err := s.findCustomer(ctx, user, email)
	if err != nil {
		return err
	}

	var invoices int64
	err = s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("customer_id = ?", customer.ID).
		Count(&invoices).Error
	if err != nil {
		return fmt.Errorf("%w: count invoices: %v", apperr.ErrUnavailable, err)
	}
	if invoices > 0 {
		slog.Info("customer deletion blocked", "email", customer.Email, "invoices", invoices)
		return fmt.Errorf("%w: customer has %d invoices", apperr.ErrConflict, invoices)
	}

	if err := s.db.WithContext(ctx).Delete(&customer).Error; err != nil {
		return fmt.Errorf("%w: delete customer: %v", apperr.ErrUnavailable, err)
	}
	if err := policy.Unlink(ctx, s.db, customer.ID); err != nil {
		return err
	}
	slog.Info("customer deleted", "email", customer.Email, "user_id", user.UserID)
	s.cache.Invalidate(customer.Email)
	return nil
}

// List returns a page of the caller's customers, searched by name and
// optionally ordered by invoice count.
func (s *CustomerService) List(ctx context.Context, user auth.UserInfo, p query.Params) (query.Page[models.Customer], error) {
	if !user.Valid() {
		return query.Page[models.Customer]{}, apperr.ErrUnauthenticated
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.Customer{}).
			Where("customers.id IN (?)", policy.OwnedCustomerIDs(s.db, user.UserID))
	}
	return query.Run[models.Customer](base, p, query.Spec{
		SearchColumn: "customers.name",
		OrderExpr:    invoiceCountExpr,
	})
}

// findCustomer resolves a customer by email through the lookup cache and
// enforces the ownership fence. It is the single read path, so every hit
// re-arms the cache and deletes invalidate it; staleness cannot be
// introduced ad hoc by individual operations.
func (s *CustomerService) findCustomer(ctx context.Context, user auth.UserInfo, email string) (models.Customer, error) {
	if !user.Valid() {
		return models.Customer{}, apperr.ErrUnauthenticated
	}
	if email == "" {
		return models.Customer{}, fmt.Errorf("%w: email is required", apperr.ErrInvalidArgument)
	}

	customer, hit := s.cache.Get(email)
	if !hit {
		err := s.db.WithContext(ctx).Where("email = ?", email).First(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Customer{}, fmt.Errorf("%w: customer %s", apperr.ErrNotFound, email)
		}
		if err != nil {
			return models.Customer{}, fmt.Errorf("%w: find customer: %v", apperr.ErrUnavailable, err)
		}
	}

	owns, err := policy.OwnsCustomer(ctx, s.db, user.UserID, customer.ID)
	if err != nil {
		return models.Customer{}, err
	}
	if !owns {
		slog.Info("customer access denied", "email", email, "user_id", user.UserID)
		return models.Customer{}, fmt.Errorf("%w: customer %s", apperr.ErrForbidden, email)
	}

	s.cache.Set(customer.Email, customer, s.cacheTTL)
	return customer, nil
}

// verifySecret gates a mutation on a correct secret: nil only when supplied
// matches the stored bcrypt hash. Neither value is ever logged.
func verifySecret(storedHash, supplied string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(supplied)); err != nil {
		return fmt.Errorf("%w: invalid password", apperr.ErrForbidden)
	}
	return nil
}
