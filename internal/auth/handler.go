package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/ayush/storyhub/backend/internal/apperr"
	"github.com/ayush/storyhub/backend/internal/httpjson"
	"github.com/ayush/storyhub/backend/internal/metrics"
	"github.com/ayush/storyhub/backend/internal/models"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	creds   *Credentials
	tokens  *TokenService
	limiter *AttemptLimiter
	log     *slog.Logger
}

func NewHandler(creds *Credentials, tokens *TokenService, limiter *AttemptLimiter, log *slog.Logger) *Handler {
	return &Handler{creds: creds, tokens: tokens, limiter: limiter, log: log}
}

// Signup creates a user and returns a token for it.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		metrics.Signups.WithLabelValues(resultLabel(err)).Inc()
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	user, err := h.creds.Create(r.Context(), NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		metrics.Signups.WithLabelValues(resultLabel(err)).Inc()
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	token, err := h.issue(user.ID)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	metrics.Signups.WithLabelValues(metrics.ResultSuccess).Inc()
	h.log.InfoContext(r.Context(), "user signed up", "user_id", user.ID)
	httpjson.WriteJSON(w, http.StatusCreated, models.AuthResponse{Status: "success", Token: token, User: user})
}

// Login authenticates by username and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("Please provide username and password"))
		return
	}
	key := NormalizeUsername(req.Username)
	attemptKey := limiterKey(key, r)

	allowed, err := h.limiter.Allow(r.Context(), attemptKey)
	if err != nil {
		// Redis trouble must not lock every user out.
		h.log.ErrorContext(r.Context(), "login limiter unavailable", "err", err)
		allowed = true
	}
	if !allowed {
		metrics.Logins.WithLabelValues("limited").Inc()
		h.log.WarnContext(r.Context(), "login attempts exceeded", "username", key)
		httpjson.WriteError(w, r, h.log, ErrTooManyAttempts)
		return
	}

	user, err := h.creds.Authenticate(r.Context(), key, req.Password)
	if err != nil {
		if errors.Is(err, ErrCredentialFormat) {
			h.log.ErrorContext(r.Context(), "stored password hash is unreadable", "username", key, "err", err)
		}
		metrics.Logins.WithLabelValues(resultLabel(err)).Inc()
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	if err := h.limiter.Reset(r.Context(), attemptKey); err != nil {
		h.log.ErrorContext(r.Context(), "login limiter reset failed", "err", err)
	}

	token, err := h.issue(user.ID)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	metrics.Logins.WithLabelValues(metrics.ResultSuccess).Inc()
	httpjson.WriteJSON(w, http.StatusOK, models.AuthResponse{Status: "success", Token: token, User: user})
}

// ChangePassword replaces the current user's password after checking the
// old one. Tokens issued before the change stop working; the response
// carries a fresh one.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.WriteError(w, r, h.log, ErrNoCredential)
		return
	}

	var req models.ChangePasswordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	match, err := h.creds.VerifyPassword(user, req.CurrentPassword)
	if err != nil {
		metrics.PasswordChanges.WithLabelValues(metrics.ResultError).Inc()
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	if !match {
		metrics.PasswordChanges.WithLabelValues("wrong_password").Inc()
		httpjson.WriteError(w, r, h.log, ErrInvalidCredentials.WithMessage("Your current password is wrong"))
		return
	}

	if err := h.creds.UpdatePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		metrics.PasswordChanges.WithLabelValues(resultLabel(err)).Inc()
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	updated, err := h.creds.FindByID(r.Context(), user.ID)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	token, err := h.issue(updated.ID)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	metrics.PasswordChanges.WithLabelValues(metrics.ResultSuccess).Inc()
	h.log.InfoContext(r.Context(), "password changed", "user_id", updated.ID)
	httpjson.WriteJSON(w, http.StatusOK, models.AuthResponse{Status: "success", Token: token, User: updated})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.WriteError(w, r, h.log, ErrNoCredential)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) issue(userID string) (string, error) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	metrics.TokensIssued.Inc()
	return token, nil
}

// limiterKey scopes login attempts to the username and the client address,
// so failures from one address cannot lock the account out for everyone.
// RemoteAddr is the real client IP when chi's RealIP middleware runs.
func limiterKey(username string, r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return username + "|" + host
}

// resultLabel turns an error into a low-cardinality metric label.
func resultLabel(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return metrics.ResultError
}
