package auth

import (
	"net/http"

	"github.com/ayush/storyhub/backend/internal/apperr"
)

// Credential errors, surfaced as 400.
var (
	ErrDuplicateIdentity = apperr.New("DUPLICATE_IDENTITY", http.StatusBadRequest, "username or email already in use")
	ErrWeakCredential    = apperr.New("WEAK_CREDENTIAL", http.StatusBadRequest, "password is too short")
	ErrCredentialFormat  = apperr.New("CREDENTIAL_FORMAT", http.StatusBadRequest, "stored credential has an invalid format")
	ErrInvalidInput      = apperr.ErrInvalidInput
)

// Login errors.
var (
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Incorrect username or password")
	ErrTooManyAttempts    = apperr.New("TOO_MANY_ATTEMPTS", http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
)

// Token verification failures.
var (
	ErrTokenExpired   = apperr.New("TOKEN_EXPIRED", http.StatusUnauthorized, "token expired")
	ErrTokenMalformed = apperr.New("TOKEN_MALFORMED", http.StatusUnauthorized, "token malformed")
	ErrTokenSignature = apperr.New("TOKEN_SIGNATURE", http.StatusUnauthorized, "token signature invalid")
)

// Session guard rejections. All map to 401; the code tells them apart.
var (
	ErrNoCredential   = apperr.New("NO_CREDENTIAL", http.StatusUnauthorized, "Not authorized")
	ErrInvalidToken   = apperr.New("INVALID_TOKEN", http.StatusUnauthorized, "Invalid token")
	ErrUnknownSubject = apperr.New("UNKNOWN_SUBJECT", http.StatusUnauthorized, "User not found")
	ErrStaleToken     = apperr.New("STALE_TOKEN", http.StatusUnauthorized, "Password recently changed. Please log in again.")
)

// RejectionReason names the guard rejection carried by err, for logs and
// metrics. It returns "" for errors that are not guard rejections.
func RejectionReason(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return ""
	}
	switch e.Code {
	case ErrNoCredential.Code:
		return "no_credential"
	case ErrInvalidToken.Code:
		return "invalid_token"
	case ErrUnknownSubject.Code:
		return "unknown_subject"
	case ErrStaleToken.Code:
		return "stale_token"
	}
	return ""
}
