package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mdd-api/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const day = 24 * time.Hour

func newTestCodec(t *testing.T, ttl time.Duration, now time.Time) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret, TTL: ttl}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return codec
}

func signRaw(t *testing.T, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	signingString := enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload))
	sig, err := jwt.SigningMethodHS256.Sign(signingString, testSecret)
	require.NoError(t, err)
	return signingString + "." + enc.EncodeToString(sig)
}

func TestNewTokenCodecRejectsWeakKey(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{Secret: testSecret[:31], TTL: day})
	assert.ErrorIs(t, err, ErrWeakSigningKey)

	_, err = NewTokenCodec(TokenConfig{TTL: day})
	assert.ErrorIs(t, err, ErrWeakSigningKey)

	_, err = NewTokenCodec(TokenConfig{Secret: testSecret, TTL: 0})
	assert.Error(t, err)
}

func TestIssueProducesThreeSegments(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("alice@example.com", nil, t0)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	_, err = codec.Issue("", nil, t0)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	codec := newTestCodec(t, day, t0.Add(time.Hour))

	cases := []struct {
		subject string
		extra   map[string]any
	}{
		{"alice@example.com", map[string]any{"userId": 7, "username": "alice"}},
		{"bob@example.com", map[string]any{"userId": int64(1) << 40, "username": "bob", "admin": false}},
		{"carol@example.com", map[string]any{"customClaim": "customValue", "ratio": 1.5}},
		{"dave@example.com", nil},
	}

	for _, tc := range cases {
		t.Run(tc.subject, func(t *testing.T) {
			token, err := codec.Issue(tc.subject, tc.extra, t0)
			require.NoError(t, err)

			sub, err := codec.ExtractSubject(token)
			require.NoError(t, err)
			assert.Equal(t, tc.subject, sub)

			for k, want := range tc.extra {
				got, err := codec.ExtractClaim(token, k)
				require.NoError(t, err)
				assert.EqualValues(t, want, got, "claim %s", k)
			}

			claims, err := codec.VerifyAndDecode(token, t0)
			require.NoError(t, err)
			assert.Equal(t, t0, claims.IssuedAt())
			assert.Equal(t, t0.Add(day), claims.ExpiresAt())
		})
	}
}

func TestNumericClaimNormalisation(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	codec := newTestCodec(t, day, t0)

	big := uint64(1)<<63 + 5
	token, err := codec.Issue("alice@example.com", map[string]any{
		"big":      big,
		"negative": int64(-42),
		"integral": 2.0,
		"fraction": 0.25,
	}, t0)
	require.NoError(t, err)

	claims, err := codec.VerifyAndDecode(token, t0)
	require.NoError(t, err)
	assert.Equal(t, big, claims["big"])
	assert.Equal(t, int64(-42), claims["negative"])
	assert.Equal(t, int64(2), claims["integral"])
	assert.Equal(t, 0.25, claims["fraction"])
}

func TestRegisteredClaimsCannotBeOverridden(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("alice@example.com", map[string]any{"sub": "mallory@example.com", "exp": 999999999999}, t0)
	require.NoError(t, err)

	claims, err := codec.VerifyAndDecode(token, t0)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject())
	assert.Equal(t, t0.Add(day), claims.ExpiresAt())
}

func TestIssueForUser(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.IssueFor(&domain.User{ID: 42, Email: "test@example.com", Username: "testuser"}, t0)
	require.NoError(t, err)

	id, err := codec.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	username, err := codec.ExtractUsername(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", username)

	sub, err := codec.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", sub)
}

func TestAliceScenario(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, 86400*time.Second, t0)

	token, err := codec.Issue("alice@example.com", map[string]any{"userId": 7, "username": "alice"}, t0)
	require.NoError(t, err)

	id, err := codec.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = codec.VerifyAndDecode(token, time.Unix(87400, 0))
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExpiryBoundary(t *testing.T) {
	t0 := time.Unix(5000, 0)
	ttl := time.Hour
	codec := newTestCodec(t, ttl, t0)

	token, err := codec.Issue("alice@example.com", nil, t0)
	require.NoError(t, err)

	for _, now := range []time.Time{t0, t0.Add(time.Minute), t0.Add(ttl - time.Second)} {
		_, err := codec.VerifyAndDecode(token, now)
		assert.NoError(t, err, "now=%d", now.Unix())
	}

	for _, now := range []time.Time{t0.Add(ttl), t0.Add(ttl + time.Second), t0.Add(30 * day)} {
		_, err := codec.VerifyAndDecode(token, now)
		assert.ErrorIs(t, err, ErrExpiredToken, "now=%d", now.Unix())
	}
}

func TestTokenUsedBeforeIssuedIsRejected(t *testing.T) {
	t0 := time.Unix(5000, 0)
	codec := newTestCodec(t, time.Hour, t0)

	token, err := codec.Issue("alice@example.com", nil, t0)
	require.NoError(t, err)

	_, err = codec.VerifyAndDecode(token, t0.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestSignatureBitFlipsAreDetected(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("alice@example.com", map[string]any{"userId": 7}, t0)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), sig...)
			tampered[i] ^= 1 << bit
			forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(tampered)

			_, err := codec.VerifyAndDecode(forged, t0)
			require.ErrorIs(t, err, ErrSignatureMismatch, "byte %d bit %d", i, bit)
		}
	}
}

func TestSignaturePaddingBitsAreDetected(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("alice@example.com", nil, t0)
	require.NoError(t, err)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := token[len(token)-1]
	idx := strings.IndexByte(alphabet, last)
	require.GreaterOrEqual(t, idx, 0)

	// the two low bits of the final character carry no signature data
	forged := token[:len(token)-1] + string(alphabet[idx^1])
	_, err = codec.VerifyAndDecode(forged, t0)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestPayloadTamperingIsDetected(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("alice@example.com", map[string]any{"userId": 7, "username": "alice"}, t0)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	for i := range parts[1] {
		replacement := byte('A')
		if parts[1][i] == 'A' {
			replacement = 'B'
		}
		payload := parts[1][:i] + string(replacement) + parts[1][i+1:]
		forged := parts[0] + "." + payload + "." + parts[2]

		_, err := codec.VerifyAndDecode(forged, t0)
		require.ErrorIs(t, err, ErrSignatureMismatch, "payload index %d", i)
	}

	// a re-encoded payload with escalated claims is equally rejected
	evil := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin@example.com","iat":1000,"exp":99999999999}`))
	_, err = codec.VerifyAndDecode(parts[0]+"."+evil+"."+parts[2], t0)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestForeignKeyAndAlgorithmAreRejected(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	other, err := NewTokenCodec(TokenConfig{Secret: []byte(strings.Repeat("x", 32)), TTL: day})
	require.NoError(t, err)
	foreign, err := other.Issue("alice@example.com", nil, t0)
	require.NoError(t, err)

	_, err = codec.VerifyAndDecode(foreign, t0)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "alice@example.com", "iat": t0.Unix(), "exp": t0.Add(day).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.VerifyAndDecode(hs512, t0)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestMalformedTokens(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	structural := []string{"", "abc", "a.b", "a.b.c.d", "..", "a..c", ".b.c"}
	for _, token := range structural {
		_, err := codec.VerifyAndDecode(token, t0)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}

	header := `{"alg":"HS256","typ":"JWT"}`
	signedButBroken := map[string]string{
		"payload not json": signRaw(t, header, "not json"),
		"header not json":  signRaw(t, "nope", `{"sub":"a@x.com","iat":1000,"exp":90000}`),
		"missing sub":      signRaw(t, header, `{"iat":1000,"exp":90000}`),
		"missing iat":      signRaw(t, header, `{"sub":"a@x.com","exp":90000}`),
		"missing exp":      signRaw(t, header, `{"sub":"a@x.com","iat":1000}`),
		"numeric sub":      signRaw(t, header, `{"sub":12,"iat":1000,"exp":90000}`),
	}
	for name, token := range signedButBroken {
		_, err := codec.VerifyAndDecode(token, t0)
		assert.ErrorIs(t, err, ErrMalformedToken, name)
	}
}

func TestProjectionsPropagateFailures(t *testing.T) {
	t0 := time.Unix(1000, 0)
	issuer := newTestCodec(t, time.Minute, t0)
	token, err := issuer.Issue("alice@example.com", map[string]any{"userId": 7}, t0)
	require.NoError(t, err)

	late := newTestCodec(t, time.Minute, t0.Add(time.Hour))

	_, err = late.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	_, err = late.ExtractClaim(token, "userId")
	assert.ErrorIs(t, err, ErrExpiredToken)
	_, err = late.ExtractUserID(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = issuer.ExtractClaim(token, "username")
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestIsValidFor(t *testing.T) {
	t0 := time.Unix(1000, 0)
	codec := newTestCodec(t, day, t0)

	token, err := codec.Issue("a@x.com", map[string]any{"userId": 1}, t0)
	require.NoError(t, err)

	ok, err := codec.IsValidFor(token, "a@x.com", t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codec.IsValidFor(token, "b@x.com", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = codec.IsValidFor(token, "a@x.com", t0.Add(day))
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.False(t, ok)

	ok, err = codec.IsValidFor(token, "b@x.com", t0.Add(day))
	assert.ErrorIs(t, err, ErrExpiredToken, "expiry wins over a subject mismatch")
	assert.False(t, ok)
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, KindMissingCredentials, FailureKind(ErrMissingCredentials))
	assert.Equal(t, KindMalformedToken, FailureKind(ErrMalformedToken))
	assert.Equal(t, KindSignatureMismatch, FailureKind(ErrSignatureMismatch))
	assert.Equal(t, KindExpiredToken, FailureKind(ErrExpiredToken))
	assert.Equal(t, KindUnknownPrincipal, FailureKind(ErrUnknownPrincipal))
	assert.Equal(t, KindUnknown, FailureKind(assert.AnError))
}
