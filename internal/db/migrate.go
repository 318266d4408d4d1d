package db

import (
	"errors"
	"fmt"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/schofire/invoiceapi/internal/config"
	"github.com/schofire/invoiceapi/internal/models"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date. On postgres with MIGRATIONS enabled
// the SQL files under ./migrations are applied via golang-migrate; otherwise
// AutoMigrate is used as a dev convenience and the only option for sqlite.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.App.Migrations && cfg.Database.Driver != "sqlite" {
		if err := runSQLMigrations(cfg.Database); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return err
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "customers", "invoices", "invoice_rows", "user_customer_relations"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates tables from the model definitions.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range []interface{}{
		&models.User{}, &models.Customer{}, &models.UserCustomerRelation{},
		&models.Invoice{}, &models.InvoiceRow{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dbCfg config.DatabaseConfig) error {
	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.DBName, dbCfg.SSLMode)
	m, err := migrate.New("file://migrations", url)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MaskDSN hides the password in a key=value DSN for log output.
func MaskDSN(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
