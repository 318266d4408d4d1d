package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/httpx"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/services"
)

type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type rowReq struct {
	Service  string  `json:"service"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

func toRowInputs(rows []rowReq) []services.RowInput {
	out := make([]services.RowInput, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.RowInput{Service: r.Service, Quantity: r.Quantity, Amount: r.Amount})
	}
	return out
}

// List: GET /api/invoices?page=&pageSize=&search=&orderBy=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	params, err := pageParams(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := h.Svc.List(r.Context(), user, params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		CustomerID uint      `json:"customer_id"`
		StartDate  time.Time `json:"start_date"`
		EndDate    time.Time `json:"end_date"`
		Comment    string    `json:"comment"`
		Rows       []rowReq  `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.Svc.Create(r.Context(), user, services.InvoiceInput{
		CustomerID: req.CustomerID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Comment:    req.Comment,
		Rows:       toRowInputs(req.Rows),
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// Get: GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	invoice, err := h.Svc.Get(r.Context(), user, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Update: PUT /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	var req struct {
		CustomerID *uint                 `json:"customer_id"`
		StartDate  *time.Time            `json:"start_date"`
		EndDate    *time.Time            `json:"end_date"`
		Comment    *string               `json:"comment"`
		Status     *models.InvoiceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.Svc.Edit(r.Context(), user, id, services.InvoicePatch{
		CustomerID: req.CustomerID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Comment:    req.Comment,
		Status:     req.Status,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// ChangeStatus: POST /api/invoices/{id}/status
func (h *InvoiceHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status models.InvoiceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.Svc.ChangeStatus(r.Context(), user, id, req.Status)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// ReplaceRows: PUT /api/invoices/{id}/rows
func (h *InvoiceHandler) ReplaceRows(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	var req struct {
		Rows []rowReq `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoice, err := h.Svc.ReplaceRows(r.Context(), user, id, toRowInputs(req.Rows))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Delete: DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), user, id); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func invoiceID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}
