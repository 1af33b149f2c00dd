package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jpbarro/HoW-X/internal/apperr"
	"github.com/jpbarro/HoW-X/internal/httpx"
	"github.com/jpbarro/HoW-X/internal/models"
	"github.com/jpbarro/HoW-X/internal/store"
	"github.com/jpbarro/HoW-X/internal/validation"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, hashedPw string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users        UserStore
	sessions     Sessions
	log          logrus.FieldLogger
	secureCookie bool
}

func NewHandler(users UserStore, sessions Sessions, log logrus.FieldLogger, secureCookie bool) *Handler {
	return &Handler{users: users, sessions: sessions, log: log, secureCookie: secureCookie}
}

// Register creates a new user and returns its id.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.Validation("invalid request body"), "")
		return
	}
	req.Normalize()

	fields, err := h.registrationErrors(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("registration uniqueness check failed")
		httpx.WriteError(w, err, "internal error")
		return
	}
	if len(fields) > 0 {
		httpx.WriteError(w, apperr.ValidationFields(fields), "")
		return
	}

	hashed, err := HashPassword(req.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		httpx.WriteError(w, apperr.ValidationFields(map[string][]string{
			"password": {"Ensure this field has no more than 72 bytes."},
		}), "")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("password hashing failed")
		httpx.WriteError(w, err, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Email, hashed)
	if errors.Is(err, store.ErrDuplicate) {
		httpx.WriteError(w, apperr.ValidationFields(map[string][]string{
			"non_field_errors": {"A user with that username or email already exists."},
		}), "")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("username", req.Username).Error("create user failed")
		httpx.WriteError(w, err, "internal error")
		return
	}

	h.log.WithField("user_id", user.ID).Info("user registered")
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"user_id": user.ID})
}

// registrationErrors runs schema validation and then the uniqueness checks
// for fields that passed it.
func (h *Handler) registrationErrors(ctx context.Context, req models.RegisterRequest) (map[string][]string, error) {
	fields := validation.Struct(req)
	if fields == nil {
		fields = map[string][]string{}
	}

	if _, bad := fields["username"]; !bad {
		taken, err := h.users.UsernameTaken(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			fields["username"] = append(fields["username"], "A user with that username already exists.")
		}
	}
	if _, bad := fields["email"]; !bad {
		taken, err := h.users.EmailTaken(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			fields["email"] = append(fields["email"], "A user with that email already exists.")
		}
	}
	return fields, nil
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.Validation("invalid request body"), "")
		return
	}
	if fields := validation.Struct(req); fields != nil {
		httpx.WriteError(w, apperr.ValidationFields(fields), "")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.WithError(err).Error("login lookup failed")
		httpx.WriteError(w, err, "internal error")
		return
	}
	if user == nil || !CheckPassword(user.Password, req.Password) {
		httpx.WriteError(w, apperr.Unauthorized("invalid credentials"), "")
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.WithError(err).Error("session creation failed")
		httpx.WriteError(w, err, "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})

	httpx.WriteJSON(w, http.StatusOK, user)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.WithError(err).Warn("session delete failed")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		MaxAge:   -1,
	})

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		httpx.WriteError(w, apperr.Unauthorized("not authenticated"), "")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, apperr.NotFound("user not found"), "")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("user lookup failed")
		httpx.WriteError(w, err, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user)
}
