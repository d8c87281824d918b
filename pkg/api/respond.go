package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/timoknapp/sports-meet/pkg/meet"
	"github.com/timoknapp/sports-meet/pkg/session"
)

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeError maps service errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verr *meet.ValidationError
	switch {
	case errors.Is(err, meet.ErrDuplicateRegistration), errors.Is(err, meet.ErrInUse):
		status = http.StatusConflict
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
		return
	case errors.Is(err, meet.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, meet.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrUnknownUser):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		s.log.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}
