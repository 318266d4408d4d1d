package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/cache"
	"github.com/schofire/invoiceapi/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCacheTTL = 10 * time.Minute

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.UserCustomerRelation{},
		&models.Invoice{},
		&models.InvoiceRow{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string) (models.User, auth.UserInfo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Name: "Test User", Email: email, Password: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user, auth.UserInfo{UserID: user.ID, Email: user.Email, Name: user.Name}
}

func newTestCustomerService(db *gorm.DB) *CustomerService {
	return NewCustomerService(db, cache.New[models.Customer](), testCacheTTL)
}

func newTestUserService(db *gorm.DB) *UserService {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	return NewUserService(db, cache.New[models.User](), testCacheTTL, jwt)
}

func seedOwnedCustomer(t *testing.T, svc *CustomerService, user auth.UserInfo, name, email string) models.Customer {
	t.Helper()
	customer, err := svc.Add(context.Background(), user, CustomerInput{
		Name:     name,
		Email:    email,
		Password: "customer-secret",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}
