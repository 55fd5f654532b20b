package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mypropai/manage-api/internal/authz"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

type CommunicationHandler struct {
	leaseRepo repository.LeaseRepository
	resolver  authz.OwnershipResolver
	logger    zerolog.Logger
}

func NewCommunicationHandler(leaseRepo repository.LeaseRepository, resolver authz.OwnershipResolver, logger zerolog.Logger) *CommunicationHandler {
	return &CommunicationHandler{leaseRepo: leaseRepo, resolver: resolver, logger: logger}
}

type communicationRequest struct {
	Subject       string                       `json:"subject"`
	Notes         string                       `json:"notes"`
	Category      models.CommunicationCategory `json:"category"`
	Status        *models.CommunicationStatus  `json:"status"`
	AttachmentURL *string                      `json:"attachment_url"`
	AttachmentID  *string                      `json:"attachment_id"`
}

func (req *communicationRequest) validate() (models.Communication, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		return models.Communication{}, fmt.Errorf("subject is required")
	}
	if !models.IsValidCommunicationCategory(req.Category) {
		return models.Communication{}, fmt.Errorf("invalid communication category")
	}
	status := models.CommStatusNotStarted
	if req.Status != nil {
		if !models.IsValidCommunicationStatus(*req.Status) {
			return models.Communication{}, fmt.Errorf("invalid communication status")
		}
		status = *req.Status
	}
	return models.Communication{
		Subject:       req.Subject,
		Notes:         req.Notes,
		Category:      req.Category,
		Status:        status,
		AttachmentURL: req.AttachmentURL,
		AttachmentID:  req.AttachmentID,
	}, nil
}

func (h *CommunicationHandler) CreateCommunication(w http.ResponseWriter, r *http.Request) {
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

	var req communicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	comm, err := req.validate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	comm.LeaseID = leaseID
	comm.Author = models.CommAuthorManager

	created, err := h.leaseRepo.AddCommunication(r.Context(), comm)
	if err != nil {
		h.logger.Error().Err(err).Str("lease_id", leaseID).Msg("Failed to create communication")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

type communicationUpdateRequest struct {
	Subject *string                     `json:"subject"`
	Notes   *string                     `json:"notes"`
	Status  *models.CommunicationStatus `json:"status"`
}

func (h *CommunicationHandler) UpdateCommunication(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	leaseID, commID := vars["leaseID"], vars["commID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	var req communicationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status != nil && !models.IsValidCommunicationStatus(*req.Status) {
		http.Error(w, "invalid communication status", http.StatusBadRequest)
		return
	}

	updated, err := h.leaseRepo.UpdateCommunication(r.Context(), leaseID, commID, repository.CommunicationUpdate{
		Subject: req.Subject,
		Notes:   req.Notes,
		Status:  req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *CommunicationHandler) DeleteCommunication(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	leaseID, commID := vars["leaseID"], vars["commID"]

	if err := h.resolver.AuthorizeLease(r.Context(), userID, leaseID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.leaseRepo.DeleteCommunication(r.Context(), leaseID, commID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
