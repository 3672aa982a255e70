package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/api/internal/platform/httpx"
	"github.com/skillforge/api/internal/services"
)

const maxAuthBodySize = 4 * 1024

// AuthHandlers exposes the simulated credential endpoints. Failures stay
// inside the success/failure envelope the storefront forms expect.
type AuthHandlers struct {
	auth services.AuthService
}

// NewAuthHandlers constructs the auth endpoint handlers.
func NewAuthHandlers(auth services.AuthService) *AuthHandlers {
	return &AuthHandlers{auth: auth}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)
	r.Post("/signup", h.signup)
	r.Post("/forgot-password", h.forgotPassword)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type sessionPayload struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionToPayload(session services.Session) sessionPayload {
	return sessionPayload{
		Token:     session.Token,
		UserID:    session.UserID,
		Email:     session.Email,
		Name:      session.Name,
		ExpiresAt: session.ExpiresAt,
	}
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req loginRequest
	if err := decodeBody(r, maxAuthBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeAuthFailure(w, err)
		return
	}
	httpx.WriteResult(w, http.StatusOK, "Logged in successfully", sessionToPayload(session))
}

func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req signupRequest
	if err := decodeBody(r, maxAuthBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.auth.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthFailure(w, err)
		return
	}
	httpx.WriteResult(w, http.StatusCreated, "Account created", sessionToPayload(session))
}

func (h *AuthHandlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req forgotPasswordRequest
	if err := decodeBody(r, maxAuthBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	if err := h.auth.ForgotPassword(ctx, req.Email); err != nil {
		h.writeAuthFailure(w, err)
		return
	}
	httpx.WriteResult(w, http.StatusOK, "If the account exists, a reset link is on its way", nil)
}

func (h *AuthHandlers) writeAuthFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAuthInvalidInput):
		httpx.WriteFailure(w, "Check your details: a valid email and a password of at least 6 characters are required")
	default:
		httpx.WriteFailure(w, "Something went wrong, please try again")
	}
}
