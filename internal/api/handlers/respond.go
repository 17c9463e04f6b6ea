package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Cheertaboi/restaurant-order-service/internal/hours"
	"github.com/Cheertaboi/restaurant-order-service/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps service errors onto status codes and {"error": code} bodies.
func writeError(w http.ResponseWriter, err error) {
	var closed *service.ClosedError
	switch {
	case errors.As(err, &closed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "shop_closed", "message": closed.Message})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid_transition", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_status", "detail": err.Error()})
	case errors.Is(err, hours.ErrInvalidSchedule):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_schedule", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_input", "detail": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}
