package auth

import (
	"context"
	"errors"
)

// Authentication failure taxonomy. All of them surface to clients as the same
// 401 body; the distinction is kept for logs and metrics only.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrMalformedToken     = errors.New("malformed token")
	ErrSignatureMismatch  = errors.New("token signature mismatch")
	ErrExpiredToken       = errors.New("token expired")
	ErrUnknownPrincipal   = errors.New("unknown principal")

	ErrWeakSigningKey = errors.New("signing key must be at least 256 bits")
	ErrMissingClaim   = errors.New("claim not present")
)

// Failure kinds used as log fields and metric labels.
const (
	KindMissingCredentials = "missing_credentials"
	KindMalformedToken     = "malformed_token"
	KindSignatureMismatch  = "signature_mismatch"
	KindExpiredToken       = "expired_token"
	KindUnknownPrincipal   = "unknown_principal"
	KindLookupTimeout      = "lookup_timeout"
	KindRequestCancelled   = "request_cancelled"
	KindUnknown            = "unknown"
)

// FailureKind maps an authentication error to its stable label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindLookupTimeout
	case errors.Is(err, context.Canceled):
		return KindRequestCancelled
	case errors.Is(err, ErrMissingCredentials):
		return KindMissingCredentials
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrMissingClaim):
		return KindMalformedToken
	case errors.Is(err, ErrSignatureMismatch):
		return KindSignatureMismatch
	case errors.Is(err, ErrExpiredToken):
		return KindExpiredToken
	case errors.Is(err, ErrUnknownPrincipal):
		return KindUnknownPrincipal
	default:
		return KindUnknown
	}
}
