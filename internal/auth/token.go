package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/mdd-api/internal/domain"
)

// MinSecretBytes is the shortest accepted HMAC key (256 bits).
const MinSecretBytes = 32

// Claim names embedded in issued tokens.
const (
	ClaimSubject  = "sub"
	ClaimIssuedAt = "iat"
	ClaimExpires  = "exp"
	ClaimUserID   = "userId"
	ClaimUsername = "username"
)

var signingMethod = jwt.SigningMethodHS256

// TokenConfig carries the immutable codec parameters.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the clock used by the projection helpers.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// TokenCodec issues and verifies HS256 bearer tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec validates the configuration and builds a codec.
func NewTokenCodec(cfg TokenConfig, opts ...CodecOption) (*TokenCodec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: got %d bits", ErrWeakSigningKey, len(cfg.Secret)*8)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	codec := &TokenCodec{secret: secret, ttl: cfg.TTL, now: time.Now}
	for _, opt := range opts {
		opt(codec)
	}
	return codec, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Now returns the codec clock's current time.
func (c *TokenCodec) Now() time.Time {
	return c.now()
}

// Issue signs a token for subject. Extra claims are merged first so the
// registered sub/iat/exp claims can never be overridden by callers.
func (c *TokenCodec) Issue(subject string, extra map[string]any, now time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}

	claims := make(jwt.MapClaims, len(extra)+3)
	for k, v := range extra {
		claims[k] = v
	}
	claims[ClaimSubject] = subject
	claims[ClaimIssuedAt] = now.Unix()
	claims[ClaimExpires] = now.Add(c.ttl).Unix()

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueFor signs a token carrying the user's identity claims.
func (c *TokenCodec) IssueFor(user *domain.User, now time.Time) (string, error) {
	return c.Issue(user.Email, map[string]any{
		ClaimUserID:   user.ID,
		ClaimUsername: user.Username,
	}, now)
}

// VerifyAndDecode checks structure, signature and validity window at now and
// returns the complete claim set. Decoding is all-or-nothing.
func (c *TokenCodec) VerifyAndDecode(token string, now time.Time) (ClaimSet, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformedToken)
	}

	// The MAC covers the raw segment text, so it is checked before any JSON
	// is decoded.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable signature", ErrSignatureMismatch)
	}
	if err := signingMethod.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return nil, ErrSignatureMismatch
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
	)

	raw := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, raw, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}); err != nil {
		return nil, mapParseError(err)
	}

	claims := ClaimSet(normalizeClaims(raw))
	if sub, ok := claims[ClaimSubject].(string); !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub claim missing", ErrMalformedToken)
	}
	if _, ok := claims[ClaimIssuedAt].(int64); !ok {
		return nil, fmt.Errorf("%w: iat claim missing", ErrMalformedToken)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	default:
		// covers unparseable segments, missing exp and iat in the future
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// ExtractSubject returns the sub claim of a valid token.
func (c *TokenCodec) ExtractSubject(token string) (string, error) {
	claims, err := c.VerifyAndDecode(token, c.now())
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// ExtractClaim returns a single claim of a valid token. Numbers come back as
// int64 when integral, uint64 when integral but above math.MaxInt64 and
// float64 otherwise. JSON carries no int/float distinction, so a float claim
// with an integral value such as 2.0 is returned as int64(2).
func (c *TokenCodec) ExtractClaim(token, name string) (any, error) {
	claims, err := c.VerifyAndDecode(token, c.now())
	if err != nil {
		return nil, err
	}
	v, ok := claims[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingClaim, name)
	}
	return v, nil
}

// ExtractUserID returns the numeric userId claim of a valid token.
func (c *TokenCodec) ExtractUserID(token string) (int64, error) {
	claims, err := c.VerifyAndDecode(token, c.now())
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// ExtractUsername returns the username claim of a valid token.
func (c *TokenCodec) ExtractUsername(token string) (string, error) {
	v, err := c.ExtractClaim(token, ClaimUsername)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: username is not a string", ErrMalformedToken)
	}
	return s, nil
}

// IsValidFor reports whether token decodes and belongs to expectedSubject.
// A subject mismatch is a plain false; decoding failures, expiry included,
// are returned as errors.
func (c *TokenCodec) IsValidFor(token, expectedSubject string, now time.Time) (bool, error) {
	claims, err := c.VerifyAndDecode(token, now)
	if err != nil {
		return false, err
	}
	return claims.Subject() == expectedSubject, nil
}

// ClaimSet is a decoded token payload.
type ClaimSet map[string]any

// Subject returns the sub claim.
func (cs ClaimSet) Subject() string {
	s, _ := cs[ClaimSubject].(string)
	return s
}

// Username returns the username claim, empty when absent.
func (cs ClaimSet) Username() string {
	s, _ := cs[ClaimUsername].(string)
	return s
}

// UserID returns the integral userId claim.
func (cs ClaimSet) UserID() (int64, error) {
	v, ok := cs[ClaimUserID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingClaim, ClaimUserID)
	}
	id, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: userId is not an integer", ErrMalformedToken)
	}
	return id, nil
}

// IssuedAt returns the iat claim as a time.
func (cs ClaimSet) IssuedAt() time.Time {
	return unixClaim(cs[ClaimIssuedAt])
}

// ExpiresAt returns the exp claim as a time.
func (cs ClaimSet) ExpiresAt() time.Time {
	return unixClaim(cs[ClaimExpires])
}

func unixClaim(v any) time.Time {
	switch n := v.(type) {
	case int64:
		return time.Unix(n, 0)
	case float64:
		return time.Unix(int64(n), 0)
	default:
		return time.Time{}
	}
}

func normalizeClaims(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		return normalizeClaims(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
