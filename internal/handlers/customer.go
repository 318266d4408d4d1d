package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/httpx"
	"github.com/schofire/invoiceapi/internal/models"
	"github.com/schofire/invoiceapi/internal/services"
)

type CustomerHandler struct {
	Svc *services.CustomerService
}

func NewCustomerHandler(svc *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{Svc: svc}
}

// List: GET /api/customers?page=&pageSize=&search=&orderBy=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
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

// Create: POST /api/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	customer, err := h.Svc.Add(r.Context(), user, services.CustomerInput{
		Name:        req.Name,
		Address:     req.Address,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

// Get: GET /api/customers/{email}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	customer, err := h.Svc.Get(r.Context(), user, r.PathValue("email"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

// Update: PUT /api/customers/{email}
// The supplied password must match the customer's stored hash.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		Name        *string `json:"name"`
		Address     *string `json:"address"`
		PhoneNumber *string `json:"phone_number"`
		Password    string  `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	customer, err := h.Svc.Edit(r.Context(), user, r.PathValue("email"), req.Password, services.CustomerPatch{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

// ChangeStatus: POST /api/customers/{email}/status
func (h *CustomerHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		Status models.CustomerStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	customer, err := h.Svc.ChangeStatus(r.Context(), user, r.PathValue("email"), req.Status)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

// Delete: DELETE /api/customers/{email}
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	if err := h.Svc.Delete(r.Context(), user, r.PathValue("email")); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
