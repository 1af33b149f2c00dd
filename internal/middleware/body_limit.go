package middleware

import (
	"fmt"
	"net/http"

	"github.com/jpbarro/HoW-X/internal/httpx"
)

// BodyLimit caps request bodies at maxMB megabytes. Requests announcing a
// larger Content-Length are rejected up front with 413.
func BodyLimit(maxMB int64) func(http.Handler) http.Handler {
	if maxMB <= 0 {
		maxMB = 10
	}
	maxBytes := maxMB * 1024 * 1024
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httpx.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("request body must not exceed %dMB", maxMB),
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
