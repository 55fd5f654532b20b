package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mypropai/manage-api/internal/authz"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/mypropai/manage-api/internal/notification"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

type LeaseHandler struct {
	leaseRepo  repository.LeaseRepository
	tenantRepo repository.TenantRepository
	resolver   authz.OwnershipResolver
	mailer     notification.Mailer
	inviteTTL  time.Duration
	urlTpl     string
	logger     zerolog.Logger
}

func NewLeaseHandler(
	leaseRepo repository.LeaseRepository,
	tenantRepo repository.TenantRepository,
	resolver authz.OwnershipResolver,
	mailer notification.Mailer,
	inviteTTL time.Duration,
	inviteURLTemplate string,
	logger zerolog.Logger,
) *LeaseHandler {
	return &LeaseHandler{
		leaseRepo:  leaseRepo,
		tenantRepo: tenantRepo,
		resolver:   resolver,
		mailer:     mailer,
		inviteTTL:  inviteTTL,
		urlTpl:     inviteURLTemplate,
		logger:     logger,
	}
}

type originateLeaseRequest struct {
	Tenant               repository.TenantInfo    `json:"tenant"`
	StartDate            time.Time                `json:"start_date"`
	EndDate              time.Time                `json:"end_date"`
	RentAmountCents      int64                    `json:"rent_amount_cents"`
	SecurityDepositCents int64                    `json:"security_deposit_cents"`
	LateFee              *models.LateFeePolicy    `json:"late_fee_policy"`
	Notes                string                   `json:"notes"`
	RecurringCharges     []models.RecurringCharge `json:"recurring_charges"`
}

func (req *originateLeaseRequest) validate() error {
	req.Tenant.FullName = strings.TrimSpace(req.Tenant.FullName)
	req.Tenant.Email = strings.ToLower(strings.TrimSpace(req.Tenant.Email))
	if req.Tenant.FullName == "" {
		return fmt.Errorf("tenant.full_name is required")
	}
	if req.Tenant.Email == "" {
		return fmt.Errorf("tenant.email is required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if !req.EndDate.After(req.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if req.RentAmountCents <= 0 {
		return fmt.Errorf("rent_amount_cents must be positive")
	}
	if req.SecurityDepositCents < 0 {
		return fmt.Errorf("security_deposit_cents must not be negative")
	}
	if req.LateFee != nil && req.LateFee.Applies {
		if req.LateFee.FeeType != models.LateFeeFixed && req.LateFee.FeeType != models.LateFeePercentage {
			return fmt.Errorf("late_fee_policy.fee_type must be Fixed or Percentage")
		}
		if req.LateFee.Amount <= 0 {
			return fmt.Errorf("late_fee_policy.amount must be positive")
		}
	}
	for i, charge := range req.RecurringCharges {
		if err := charge.Validate(); err != nil {
			return fmt.Errorf("recurring_charges[%d]: %v", i, err)
		}
	}
	return nil
}

// OriginateLease is the atomic move-in operation. Everything financial and
// occupancy related happens in one storage transaction; the portal invitation
// afterwards is best effort and never undoes a committed lease.
func (h *LeaseHandler) OriginateLease(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	unitID := mux.Vars(r)["unitID"]

	if err := h.resolver.AuthorizeUnit(r.Context(), userID, unitID); err != nil {
		writeError(w, err)
		return
	}

	var req originateLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Duplicate portal emails are rejected before anything is written.
	registered, err := h.tenantRepo.EmailRegistered(r.Context(), req.Tenant.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to check email registration")
		writeError(w, err)
		return
	}
	if registered {
		http.Error(w, "email is already registered to a portal account", http.StatusConflict)
		return
	}

	var policy models.LateFeePolicy
	if req.LateFee != nil {
		policy = *req.LateFee
	}
	lease, tenant, err := h.leaseRepo.OriginateLease(r.Context(), repository.OriginateLeaseParams{
		UnitID:               unitID,
		Tenant:               req.Tenant,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RentAmountCents:      req.RentAmountCents,
		SecurityDepositCents: req.SecurityDepositCents,
		LateFeePolicy:        policy,
		Notes:                req.Notes,
		RecurringCharges:     req.RecurringCharges,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("unit_id", unitID).Msg("Failed to originate lease")
		writeError(w, err)
		return
	}

	h.sendInvitation(r.Context(), lease.ID, tenant)

	writeJSON(w, http.StatusCreated, lease)
}

// sendInvitation creates the portal credential and emails the activation
// link. Failures are logged only; the lease already committed and the
// landlord can retry through the resend endpoint.
func (h *LeaseHandler) sendInvitation(ctx context.Context, leaseID string, tenant models.Tenant) {
	logger := h.logger.With().Str("lease_id", leaseID).Str("tenant_id", tenant.ID).Logger()

	token, err := generatePortalToken()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to generate invitation token")
		return
	}
	expires := time.Now().Add(h.inviteTTL)

	if _, err := h.tenantRepo.CreateTenantUser(ctx, tenant.Email, tenant.ID, hashPortalToken(token), expires); err != nil {
		logger.Warn().Err(err).Msg("Failed to create portal account")
		return
	}

	if h.mailer == nil {
		logger.Warn().Msg("No mailer configured, skipping invite email")
		return
	}
	inviteURL := fmt.Sprintf(h.urlTpl, token)
	if err := h.mailer.SendInvite(tenant.Email, tenant.FullName, inviteURL); err != nil {
		logger.Warn().Err(err).Msg("Failed to send invite email")
	}
}

func (h *LeaseHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	leaseID := mux.Vars(r)["leaseID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	lease, err := h.leaseRepo.GetLease(r.Context(), leaseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lease)
}

type updateLeaseRequest struct {
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	RentAmountCents      *int64     `json:"rent_amount_cents"`
	SecurityDepositCents *int64     `json:"security_deposit_cents"`
	Notes                *string    `json:"notes"`

	LateFeeApplies   *bool               `json:"late_fee_applies"`
	LateFeeType      *models.LateFeeType `json:"late_fee_type"`
	LateFeeAmount    *int64              `json:"late_fee_amount"`
	LateFeeGraceDays *int                `json:"late_fee_grace_days"`

	Tenant *struct {
		FullName     *string `json:"full_name"`
		Phone        *string `json:"phone"`
		ContactNotes *string `json:"contact_notes"`
	} `json:"tenant"`

	// When present the whole template set is replaced; nil leaves it alone.
	RecurringCharges *[]models.RecurringCharge `json:"recurring_charges"`
}

func (req *updateLeaseRequest) validate() error {
	if req.RentAmountCents != nil && *req.RentAmountCents <= 0 {
		return fmt.Errorf("rent_amount_cents must be positive")
	}
	if req.SecurityDepositCents != nil && *req.SecurityDepositCents < 0 {
		return fmt.Errorf("security_deposit_cents must not be negative")
	}
	if req.LateFeeType != nil && *req.LateFeeType != models.LateFeeFixed && *req.LateFeeType != models.LateFeePercentage {
		return fmt.Errorf("late_fee_type must be Fixed or Percentage")
	}
	if req.RecurringCharges != nil {
		for i, charge := range *req.RecurringCharges {
			if err := charge.Validate(); err != nil {
				return fmt.Errorf("recurring_charges[%d]: %v", i, err)
			}
		}
	}
	return nil
}

// UpdateLease applies a partial update of terms and tenant contact details.
// An invalid entry anywhere in recurring_charges rejects the whole request
// before any write happens.
func (h *LeaseHandler) UpdateLease(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	leaseID := mux.Vars(r)["leaseID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	var req updateLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.leaseRepo.UpdateLeaseTerms(r.Context(), leaseID, repository.TermUpdate{
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RentAmountCents:      req.RentAmountCents,
		SecurityDepositCents: req.SecurityDepositCents,
		Notes:                req.Notes,
		LateFeeApplies:       req.LateFeeApplies,
		LateFeeType:          req.LateFeeType,
		LateFeeAmount:        req.LateFeeAmount,
		LateFeeGraceDays:     req.LateFeeGraceDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if req.RecurringCharges != nil {
		if _, err := h.leaseRepo.ReplaceRecurringCharges(r.Context(), leaseID, *req.RecurringCharges); err != nil {
			h.logger.Error().Err(err).Str("lease_id", leaseID).Msg("Failed to replace recurring charges")
			writeError(w, err)
			return
		}
	}

	if req.Tenant != nil {
		lease, err := h.leaseRepo.GetLease(r.Context(), leaseID)
		if err != nil {
			writeError(w, err)
			return
		}
		err = h.tenantRepo.UpdateTenantContact(r.Context(), lease.TenantID, repository.ContactUpdate{
			FullName:     req.Tenant.FullName,
			Phone:        req.Tenant.Phone,
			ContactNotes: req.Tenant.ContactNotes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}

	lease, err := h.leaseRepo.GetLease(r.Context(), leaseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lease)
}

type postTransactionRequest struct {
	Date        time.Time              `json:"date"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description"`
	AmountCents int64                  `json:"amount_cents"`
}

func (h *LeaseHandler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	leaseID := mux.Vars(r)["leaseID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	var req postTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.IsValidTransactionType(req.Type) {
		http.Error(w, "invalid transaction type", http.StatusBadRequest)
		return
	}
	if req.AmountCents == 0 {
		http.Error(w, "amount_cents must not be zero", http.StatusBadRequest)
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now().UTC()
	}

	transaction, err := h.leaseRepo.AppendTransaction(r.Context(), leaseID, models.Transaction{
		Date:        req.Date,
		Type:        req.Type,
		Description: req.Description,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

func (h *LeaseHandler) TerminateLease(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	leaseID := mux.Vars(r)["leaseID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.leaseRepo.TerminateLease(r.Context(), leaseID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResendInvitation regenerates the portal invitation for the lease's tenant.
// It recovers from origination runs where the invite email never went out.
func (h *LeaseHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	leaseID := mux.Vars(r)["leaseID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	lease, err := h.leaseRepo.GetLease(r.Context(), leaseID)
	if err != nil {
		writeError(w, err)
		return
	}
	tenant := *lease.Tenant

	token, err := generatePortalToken()
	if err != nil {
		writeError(w, err)
		return
	}
	expires := time.Now().Add(h.inviteTTL)

	_, err = h.tenantRepo.RefreshInvitation(r.Context(), tenant.Email, hashPortalToken(token), expires)
	if err != nil {
		// No credential yet: the origination-time creation must have failed.
		_, err = h.tenantRepo.CreateTenantUser(r.Context(), tenant.Email, tenant.ID, hashPortalToken(token), expires)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if h.mailer == nil {
		http.Error(w, "email sender not configured", http.StatusInternalServerError)
		return
	}
	inviteURL := fmt.Sprintf(h.urlTpl, token)
	if err := h.mailer.SendInvite(tenant.Email, tenant.FullName, inviteURL); err != nil {
		h.logger.Error().Err(err).Str("lease_id", leaseID).Msg("Failed to send invite email")
		http.Error(w, "failed to send invite email", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invitation sent"})
}

func generatePortalToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashPortalToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
