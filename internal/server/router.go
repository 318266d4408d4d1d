// Package server wires handlers, middleware, and infrastructure endpoints
// into the root http.Handler.
package server

import (
	"net/http"
	"time"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/cache"
	"github.com/schofire/invoiceapi/internal/config"
	"github.com/schofire/invoiceapi/internal/handlers"
	"github.com/schofire/invoiceapi/internal/httpx"
	"github.com/schofire/invoiceapi/internal/metrics"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/services"
	"gorm.io/gorm"
)

// New constructs the root handler with all routes and middleware applied.
func New(db *gorm.DB, jwt *auth.JWTManager, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	cacheTTL := time.Duration(cfg.Auth.CacheTTL) * time.Minute
	customerCache := cache.New[models.Customer]()
	userCache := cache.New[models.User]()

	customerSvc := services.NewCustomerService(db, customerCache, cacheTTL)
	invoiceSvc := services.NewInvoiceService(db)
	userSvc := services.NewUserService(db, userCache, cacheTTL, jwt)
	reportSvc := services.NewReportService(db)

	// --- Health and metrics endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// --- Open user endpoints ---
	uh := handlers.NewUserHandler(userSvc)
	mux.HandleFunc("POST /api/users/register", uh.Register)
	mux.HandleFunc("POST /api/users/login", uh.LogIn)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	// --- Account endpoints ---
	mux.Handle("PUT /api/users/me", authed(uh.Update))
	mux.Handle("POST /api/users/me/password", authed(uh.ChangePassword))
	mux.Handle("POST /api/users/me/delete", authed(uh.Delete))

	// --- Customer endpoints ---
	ch := handlers.NewCustomerHandler(customerSvc)
	mux.Handle("GET /api/customers", authed(ch.List))
	mux.Handle("POST /api/customers", authed(ch.Create))
	mux.Handle("GET /api/customers/{email}", authed(ch.Get))
	mux.Handle("PUT /api/customers/{email}", authed(ch.Update))
	mux.Handle("DELETE /api/customers/{email}", authed(ch.Delete))
	mux.Handle("POST /api/customers/{email}/status", authed(ch.ChangeStatus))

	// --- Invoice endpoints ---
	ih := handlers.NewInvoiceHandler(invoiceSvc)
	mux.Handle("GET /api/invoices", authed(ih.List))
	mux.Handle("POST /api/invoices", authed(ih.Create))
	mux.Handle("GET /api/invoices/{id}", authed(ih.Get))
	mux.Handle("PUT /api/invoices/{id}", authed(ih.Update))
	mux.Handle("DELETE /api/invoices/{id}", authed(ih.Delete))
	mux.Handle("POST /api/invoices/{id}/status", authed(ih.ChangeStatus))
	mux.Handle("PUT /api/invoices/{id}/rows", authed(ih.ReplaceRows))

	// --- Report endpoints ---
	rh := handlers.NewReportHandler(reportSvc)
	mux.Handle("GET /api/reports/customers", authed(rh.Customers))
	mux.Handle("GET /api/reports/work-done", authed(rh.WorkDone))
	mux.Handle("GET /api/reports/invoices", authed(rh.Invoices))

	// Auth runs outermost so the request log and metrics see the resolved
	// identity and the matched route pattern.
	var handler http.Handler = mux
	handler = withLogging(handler)
	handler = metrics.Middleware(handler)
	handler = auth.Middleware(jwt)(handler)
	return handler
}
