package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mypropai/manage-api/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Anything unclassified is a
// 500 with a generic body; the caller logs the details.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
