package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/auth"
	"github.com/jpbarro/HoW-X/internal/middleware"
	"github.com/jpbarro/HoW-X/internal/posts"
)

// Deps are the collaborators the router mounts.
type Deps struct {
	Auth        *auth.Handler
	Posts       *posts.Handler
	Sessions    auth.Sessions
	AuthLimiter *middleware.IPRateLimiter
	Log         logrus.FieldLogger
	CORSOrigins []string
	MaxUploadMB int64

	// TrustedProxies may set X-Forwarded-For; empty trusts nobody.
	TrustedProxies []netip.Prefix
}

// New builds the HTTP routing tree.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(d.TrustedProxies))
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: d.Log, NoColor: true}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Identify(d.Sessions, d.Log))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(d.AuthLimiter.Middleware).Post("/register", d.Auth.Register)
		r.With(d.AuthLimiter.Middleware).Post("/login", d.Auth.Login)
		r.Post("/logout", d.Auth.Logout)
		r.With(middleware.RequireAuth).Get("/me", d.Auth.Me)
	})

	// Reads are public; writes need a session. Ownership is checked by the
	// post service.
	r.Route("/api/posts", func(r chi.Router) {
		r.Use(middleware.AuthenticatedOrReadOnly)
		r.Use(middleware.BodyLimit(d.MaxUploadMB))
		r.Get("/", d.Posts.List)
		r.Post("/", d.Posts.Create)
		r.Get("/{id}", d.Posts.Get)
		r.Get("/{id}/image", d.Posts.Image)
		r.Put("/{id}", d.Posts.Replace)
		r.Patch("/{id}", d.Posts.Patch)
		r.Delete("/{id}", d.Posts.Delete)
	})

	return r
}
