package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/httpx"
	"github.com/schofire/invoiceapi/internal/services"
)

type UserHandler struct {
	Svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{Svc: svc}
}

// Register: POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
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
	user, err := h.Svc.Register(r.Context(), services.RegisterInput{
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
	httpx.JSON(w, http.StatusCreated, user)
}

// LogIn: POST /api/users/login
func (h *UserHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, token, err := h.Svc.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

// Update: PUT /api/users/me
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	updated, err := h.Svc.Edit(r.Context(), user, req.Password, services.UserPatch{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// ChangePassword: POST /api/users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"changed": true})
}

// Delete: POST /api/users/me/delete
// Requires password confirmation in the body.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserInfoFromContext(r.Context())
	var req struct {
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), user, req.PasswordConfirmation); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
