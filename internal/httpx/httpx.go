// Package httpx holds the JSON response helpers used by every handler.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/jpbarro/HoW-X/internal/apperr"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes err as {"error": ...}. Errors outside the apperr
// taxonomy become a 500 carrying fallback instead of their own text.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	appErr, ok := apperr.As(err)
	if !ok {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
		return
	}
	body := map[string]interface{}{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	WriteJSON(w, Status(appErr.Code), body)
}

// Status maps an error code to its HTTP status.
func Status(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
