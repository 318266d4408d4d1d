package db

import (
	"errors"
	"time"

	"github.com/schofire/invoiceapi/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed inserts a demo account with a couple of customers and invoices.
// Idempotent: does nothing when the demo user already exists.
func Seed(db *gorm.DB) error {
	var existing models.User
	err := db.Where("email = ?", "demo@example.com").First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{Name: "Demo User", Email: "demo@example.com", Password: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	customers := []models.Customer{
		{Name: "Acme Corp", Email: "billing@acme.test", Password: string(hash), Status: models.CustomerStatusActive},
		{Name: "Globex LLC", Email: "accounts@globex.test", Password: string(hash), Status: models.CustomerStatusActive},
	}
	for i := range customers {
		if err := db.Create(&customers[i]).Error; err != nil {
			return err
		}
		rel := models.UserCustomerRelation{UserID: user.ID, CustomerID: customers[i].ID}
		if err := db.Create(&rel).Error; err != nil {
			return err
		}
	}

	invoice := models.Invoice{
		CustomerID: customers[0].ID,
		StartDate:  time.Now().AddDate(0, -1, 0),
		EndDate:    time.Now(),
		Status:     models.InvoiceStatusCreated,
		Comment:    "monthly services",
		Rows: []models.InvoiceRow{
			{Service: "Consulting", Quantity: 10, Amount: 120},
			{Service: "Support", Quantity: 5, Amount: 80},
		},
	}
	invoice.RecalculateTotals()
	return db.Create(&invoice).Error
}
