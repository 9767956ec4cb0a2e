// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web binds the authentication operations to HTTP.
//
// Request bodies are validated against JSON schemas reflected from the
// request types before they reach the core. Failures are rendered through
// auth.PublicFailure, so internal detail never reaches the client.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// MaxRequestBodySize is the largest accepted request body (1 MiB).
const MaxRequestBodySize = 1 << 20

// Authenticator is the core the handler exposes. *auth.Service implements it.
type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Authenticate(ctx context.Context, email, password string) (*auth.Session, error)
	TerminateSession() *http.Cookie
	CurrentAccount(ctx context.Context, token string) (auth.SanitizedAccount, error)
}

// RequestObserver receives one observation per served request.
// *observability.Metrics implements it.
type RequestObserver interface {
	ObserveHTTPRequest(route string, status int, elapsed time.Duration)
}

// sessionResponse is the body of a successful registration or sign-in.
type sessionResponse struct {
	Account   auth.SanitizedAccount `json:"account"`
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
}

// Handler serves the /auth routes.
type Handler struct {
	auth      Authenticator
	validator *RequestValidator
	logger    *slog.Logger
	observer  RequestObserver
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithObserver sets the observer notified of every served request.
func WithObserver(observer RequestObserver) Option {
	return func(h *Handler) {
		h.observer = observer
	}
}

// NewHandler creates a Handler.
func NewHandler(a Authenticator, validator *RequestValidator, opts ...Option) (*Handler, error) {
	if a == nil {
		return nil, oops.Code(auth.CodeConfigurationError).Errorf("authenticator is required")
	}
	if validator == nil {
		return nil, oops.Code(auth.CodeConfigurationError).Errorf("request validator is required")
	}

	h := &Handler{
		auth:      a,
		validator: validator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		return nil, oops.Code(auth.CodeConfigurationError).Errorf("logger cannot be nil")
	}
	return h, nil
}

// Routes returns the router with all routes and middleware.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(h.recoverPanics)
	r.Use(limitBody)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, SchemaRegister, &req); err != nil {
		h.reject(w, r, err)
		return
	}

	session, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSession(w, http.StatusCreated, session)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, SchemaLogin, &req); err != nil {
		h.reject(w, r, err)
		return
	}

	session, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSession(w, http.StatusOK, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.auth.TerminateSession())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	token := presentedToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, auth.CodeTokenInvalid, "no session token presented")
		return
	}

	account, err := h.auth.CurrentAccount(r.Context(), token)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// decode reads the request body and validates it against the named schema.
func (h *Handler) decode(r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.Code(auth.CodeInvalidInput).
				Public("request body too large").
				With("limit", tooLarge.Limit).
				Wrap(err)
		}
		return oops.Code(auth.CodeInvalidInput).Public("request body could not be read").Wrap(err)
	}
	return h.validator.Decode(schema, body, dst)
}

// reject answers a request refused before it reached the core.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.DebugContext(r.Context(), "request rejected",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, auth.CodeInvalidInput, "request body too large")
		return
	}
	writeFailure(w, err)
}

func writeSession(w http.ResponseWriter, status int, session *auth.Session) {
	http.SetCookie(w, session.Cookie)
	writeJSON(w, status, sessionResponse{
		Account:   session.Account,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// presentedToken returns the session token from the session cookie, falling
// back to an Authorization: Bearer header.
func presentedToken(r *http.Request) string {
	if c, err := r.Cookie(auth.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
