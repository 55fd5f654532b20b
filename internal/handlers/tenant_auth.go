package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/notification"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

const minPasswordLength = 6

// TenantAuthHandler owns the public portal credential endpoints: invitation
// acceptance, login, and the password reset pair.
type TenantAuthHandler struct {
	tenantRepo repository.TenantRepository
	mailer     notification.Mailer
	resetTTL   time.Duration
	resetTpl   string
	jwtSecret  string
	logger     zerolog.Logger
}

func NewTenantAuthHandler(
	tenantRepo repository.TenantRepository,
	mailer notification.Mailer,
	resetTTL time.Duration,
	resetURLTemplate string,
	jwtSecret string,
	logger zerolog.Logger,
) *TenantAuthHandler {
	return &TenantAuthHandler{
		tenantRepo: tenantRepo,
		mailer:     mailer,
		resetTTL:   resetTTL,
		resetTpl:   resetURLTemplate,
		jwtSecret:  jwtSecret,
		logger:     logger,
	}
}

type passwordRequest struct {
	Password string `json:"password"`
}

// AcceptInvitation activates a portal account: valid unexpired token plus a
// password of at least six characters. The token is single use; setting the
// password clears it.
func (h *TenantAuthHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLength {
		http.Error(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength), http.StatusBadRequest)
		return
	}

	user, err := h.tenantRepo.GetTenantUserByInvitationTokenHash(r.Context(), hashPortalToken(token))
	if err != nil {
		writeError(w, err)
		return
	}
	if user.IsActivated() {
		http.Error(w, "account is already activated", http.StatusConflict)
		return
	}
	if !user.InvitationValid(time.Now()) {
		writeError(w, apperr.InvalidToken("invitation has expired"))
		return
	}

	if err := h.tenantRepo.SetPassword(r.Context(), user.ID, req.Password); err != nil {
		h.logger.Error().Err(err).Str("tenant_user_id", user.ID).Msg("Failed to activate portal account")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "account activated"})
}

type tenantLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *TenantAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req tenantLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.tenantRepo.AuthenticateTenant(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	tokenString, err := issueTenantToken(user.ID, user.TenantID, h.jwtSecret)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to sign tenant token")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset always answers 202 so callers cannot probe which
// emails hold accounts.
func (h *TenantAuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	h.startReset(r, email)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "if the account exists, a reset email has been sent"})
}

func (h *TenantAuthHandler) startReset(r *http.Request, email string) {
	token, err := generatePortalToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate reset token")
		return
	}

	_, err = h.tenantRepo.SetResetToken(r.Context(), email, hashPortalToken(token), time.Now().Add(h.resetTTL))
	if err != nil {
		// Unknown or unactivated email; nothing leaves the server.
		h.logger.Debug().Err(err).Msg("Password reset requested for inactive account")
		return
	}

	if h.mailer == nil {
		h.logger.Warn().Msg("No mailer configured, skipping reset email")
		return
	}
	resetURL := fmt.Sprintf(h.resetTpl, token)
	if err := h.mailer.SendPasswordReset(email, resetURL); err != nil {
		h.logger.Error().Err(err).Msg("Failed to send reset email")
	}
}

// ConfirmPasswordReset sets a new password for a valid unexpired reset token.
func (h *TenantAuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLength {
		http.Error(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength), http.StatusBadRequest)
		return
	}

	user, err := h.tenantRepo.GetTenantUserByResetTokenHash(r.Context(), hashPortalToken(token))
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.ResetValid(time.Now()) {
		writeError(w, apperr.InvalidToken("reset token has expired"))
		return
	}

	if err := h.tenantRepo.ResetPassword(r.Context(), user.ID, req.Password); err != nil {
		h.logger.Error().Err(err).Str("tenant_user_id", user.ID).Msg("Failed to reset password")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
