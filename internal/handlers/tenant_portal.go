package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mypropai/manage-api/internal/authz"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

// TenantPortalHandler serves the logged-in renter's view: their active lease
// and the ability to file requests against it.
type TenantPortalHandler struct {
	leaseRepo repository.LeaseRepository
	logger    zerolog.Logger
}

func NewTenantPortalHandler(leaseRepo repository.LeaseRepository, logger zerolog.Logger) *TenantPortalHandler {
	return &TenantPortalHandler{leaseRepo: leaseRepo, logger: logger}
}

type portalLeaseResponse struct {
	Lease        models.Lease `json:"lease"`
	BalanceCents int64        `json:"balance_cents"`
}

func (h *TenantPortalHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.TenantFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	lease, err := h.leaseRepo.GetActiveLeaseByTenant(r.Context(), identity.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, portalLeaseResponse{Lease: lease, BalanceCents: lease.Balance()})
}

// SubmitCommunication files a renter request on their own active lease. The
// author is forced to Tenant and the status starts at Not Started regardless
// of what the client sends.
func (h *TenantPortalHandler) SubmitCommunication(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.TenantFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	lease, err := h.leaseRepo.GetActiveLeaseByTenant(r.Context(), identity.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req communicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Status = nil
	comm, err := req.validate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	comm.LeaseID = lease.ID
	comm.Author = models.CommAuthorTenant

	created, err := h.leaseRepo.AddCommunication(r.Context(), comm)
	if err != nil {
		h.logger.Error().Err(err).Str("lease_id", lease.ID).Msg("Failed to submit tenant communication")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
