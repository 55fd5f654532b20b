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

type UnitHandler struct {
	unitRepo repository.UnitRepository
	resolver authz.OwnershipResolver
	logger   zerolog.Logger
}

func NewUnitHandler(unitRepo repository.UnitRepository, resolver authz.OwnershipResolver, logger zerolog.Logger) *UnitHandler {
	return &UnitHandler{unitRepo: unitRepo, resolver: resolver, logger: logger}
}

type createUnitRequest struct {
	Name  string   `json:"name"`
	Beds  *int     `json:"beds"`
	Baths *float64 `json:"baths"`
	Sqft  *int     `json:"sqft"`
}

func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
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

	var req createUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	unit, err := h.unitRepo.CreateUnit(r.Context(), models.Unit{
		PropertyID: propertyID,
		Name:       req.Name,
		Beds:       req.Beds,
		Baths:      req.Baths,
		Sqft:       req.Sqft,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("property_id", propertyID).Msg("Failed to create unit")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, unit)
}

func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
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

	units, err := h.unitRepo.ListUnitsByProperty(r.Context(), propertyID)
	if err != nil {
		h.logger.Error().Err(err).Str("property_id", propertyID).Msg("Failed to list units")
		writeError(w, err)
		return
	}
	if units == nil {
		units = []models.Unit{}
	}

	writeJSON(w, http.StatusOK, units)
}
