package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/apperr"
	"github.com/jpbarro/HoW-X/internal/auth"
	"github.com/jpbarro/HoW-X/internal/httpx"
)

// Identify resolves the session cookie, when present, and injects the user
// id into the request context. Requests without a valid session pass
// through as anonymous, as do requests whose session cannot be looked up,
// so public reads survive a session store outage.
func Identify(sessions auth.Sessions, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				log.WithError(err).Warn("session lookup failed, continuing as anonymous")
				next.ServeHTTP(w, r)
				return
			}
			if userID != "" {
				r = r.WithContext(auth.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests. It must run after Identify.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			httpx.WriteError(w, apperr.Unauthorized("not authenticated"), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthenticatedOrReadOnly lets safe methods through for anyone and requires
// a session for everything else.
func AuthenticatedOrReadOnly(next http.Handler) http.Handler {
	protected := RequireAuth(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			protected.ServeHTTP(w, r)
		}
	})
}
