package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mypropai/manage-api/internal/authz"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

type PropertyHandler struct {
	propertyRepo repository.PropertyRepository
	resolver     authz.OwnershipResolver
	logger       zerolog.Logger
}

func NewPropertyHandler(propertyRepo repository.PropertyRepository, resolver authz.OwnershipResolver, logger zerolog.Logger) *PropertyHandler {
	return &PropertyHandler{propertyRepo: propertyRepo, resolver: resolver, logger: logger}
}

type createPropertyRequest struct {
	Address string `json:"address"`
}

func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	property, err := h.propertyRepo.CreateProperty(r.Context(), userID, req.Address)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create property")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	properties, err := h.propertyRepo.ListPropertiesByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list properties")
		writeError(w, err)
		return
	}
	if properties == nil {
		properties = []models.ManagedProperty{}
	}

	writeJSON(w, http.StatusOK, properties)
}

func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.LandlordFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	propertyID := mux.Vars(r)["propertyID"]

	if err := h.resolver.AuthorizeProperty(r.Context(), userID, propertyID); err != nil {
		writeError(w, err)
		return
	}

	property, err := h.propertyRepo.GetProperty(r.Context(), propertyID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, property)
}
