package handlers

import (
	"net/http"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/httpx"
	"github.com/schofire/invoiceapi/internal/services"
)

type ReportHandler struct {
	Svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{Svc: svc}
}

// Customers: GET /api/reports/customers
func (h *ReportHandler) Customers(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	params, err := pageParams(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := h.Svc.CustomerReport(r.Context(), user, params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// WorkDone: GET /api/reports/work-done
func (h *ReportHandler) WorkDone(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	params, err := pageParams(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := h.Svc.WorkDoneReport(r.Context(), user, params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// Invoices: GET /api/reports/invoices
func (h *ReportHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	params, err := pageParams(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := h.Svc.InvoiceReport(r.Context(), user, params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}
