package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edvin/clusterplan/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteModelError writes err with the status matching its kind.
func WriteModelError(w http.ResponseWriter, err error) {
	WriteError(w, StatusFor(err), err.Error())
}

// StatusFor maps an engine or store error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotExist), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNoConfFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalid), errors.Is(err, model.ErrInvalidName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
