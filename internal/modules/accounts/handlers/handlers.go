// Package handlers provides HTTP handlers for registration, login and
// profile lookups.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/faketrading/backend/internal/domain"
	"github.com/faketrading/backend/internal/modules/accounts"
)

// AccountHandlers contains HTTP handlers for the accounts API
type AccountHandlers struct {
	service *accounts.Service
	log     zerolog.Logger
}

// NewAccountHandlers creates a new account handlers instance
func NewAccountHandlers(service *accounts.Service, log zerolog.Logger) *AccountHandlers {
	return &AccountHandlers{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleRegister creates a user and its starting-cash account.
// POST /api/auth/register
func (h *AccountHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	user, err := h.service.Register(req.Email, req.Password)
	if err != nil {
		if domain.Kind(err) == "internal" {
			h.log.Error().Err(err).Msg("Registration failed")
		}
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"balance":  accounts.StartingCash,
	})
}

// HandleLogin verifies credentials and returns a token pair.
// POST /api/auth/login
func (h *AccountHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	user, pair, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if domain.Kind(err) == "internal" {
			h.log.Error().Err(err).Msg("Login failed")
		}
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":       user.ID,
		"username":      user.Username,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	})
}

// HandleRefresh exchanges a refresh token for a new pair.
// POST /api/auth/refresh
func (h *AccountHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	pair, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, pair)
}

// HandleGetProfile returns a user's username and cash balance.
// GET /api/profile/{userID}/
func (h *AccountHandlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "bad_request")
		return
	}

	profile, err := h.service.GetProfile(userID)
	if err != nil {
		if domain.Kind(err) == "internal" {
			h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get profile")
		}
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": profile.Username,
		"balance":  profile.Balance,
	})
}

// writeJSON writes a JSON response
func (h *AccountHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *AccountHandlers) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeDomainError maps a domain error to its HTTP status and stable code
func (h *AccountHandlers) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "internal" {
		message = "Internal server error"
	}
	h.writeError(w, domain.HTTPStatus(err), message, kind)
}
