package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-for-tests-0123456789")
	refreshSecret = []byte("refresh-secret-for-tests-987654321")
	t0            = time.Unix(1_700_000_000, 0)
)

func TestSignVerify_RoundTripUntilExpiry(t *testing.T) {
	ttl := 30 * time.Minute
	in := Claims{Kind: KindAccess}
	in.Subject = "01HZX3TV5Q3A3N3M6J8W2K1C9B"

	tok, err := Sign(in, accessSecret, ttl, t0)
	require.NoError(t, err)

	for _, at := range []time.Time{t0, t0.Add(ttl / 2), t0.Add(ttl - time.Second)} {
		got, err := Verify(tok, accessSecret, at)
		require.NoError(t, err, "at %s", at)
		require.Equal(t, in.Subject, got.UserID())
		require.Equal(t, KindAccess, got.Kind)
		require.Equal(t, t0.Add(ttl).Unix(), got.ExpiresAt.Unix())
	}

	for _, at := range []time.Time{t0.Add(ttl), t0.Add(ttl + time.Hour)} {
		_, err := Verify(tok, accessSecret, at)
		require.ErrorIs(t, err, ErrInvalid, "at %s", at)
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	in := Claims{Kind: KindAccess}
	in.Subject = "u1"
	tok, err := Sign(in, accessSecret, time.Minute, t0)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "tokenType": "access",
	}).SignedString(accessSecret)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u1", "tokenType": "access", "exp": t0.Add(time.Hour).Unix(),
	}).SignedString(accessSecret)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tokenType": "access", "exp": t0.Add(time.Hour).Unix(),
	}).SignedString(accessSecret)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"tampered":       tok[:len(tok)-2] + flip(tok[len(tok)-2:]),
		"no expiry":      noExp,
		"foreign alg":    hs512,
		"missing sub":    noSub,
		"alg none":       unsignedNone(t),
		"other secret":   mustSign(t, in, refreshSecret),
		"truncated body": strings.Join(strings.Split(tok, ".")[:2], "."),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Verify(s, accessSecret, t0)
			require.ErrorIs(t, err, ErrInvalid)
			require.Equal(t, Claims{}, got)
		})
	}
}

func TestCodec_KindDiscriminator(t *testing.T) {
	access, err := NewCodec(KindAccess, accessSecret, 30*time.Minute)
	require.NoError(t, err)
	refresh, err := NewCodec(KindRefresh, refreshSecret, 14*24*time.Hour)
	require.NoError(t, err)

	rt, claims, err := refresh.Issue("u1", "tid-1", t0)
	require.NoError(t, err)
	require.Equal(t, "tid-1", claims.TokenID())
	require.Equal(t, t0.Add(refresh.TTL()).Unix(), claims.ExpiresAt.Unix())

	// A refresh token must not pass as access, even under a shared secret.
	_, err = access.Parse(rt, t0)
	require.ErrorIs(t, err, ErrInvalid)

	shared, err := NewCodec(KindAccess, refreshSecret, time.Minute)
	require.NoError(t, err)
	_, err = shared.Parse(rt, t0)
	require.ErrorIs(t, err, ErrWrongKind)

	got, err := refresh.Parse(rt, t0)
	require.NoError(t, err)
	require.Equal(t, KindRefresh, got.Kind)
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := NewCodec(KindAccess, nil, time.Minute)
	require.True(t, errors.Is(err, ErrSecretMissing))

	_, err = NewCodec("session", accessSecret, time.Minute)
	require.Error(t, err)

	_, err = NewCodec(KindAccess, accessSecret, 0)
	require.Error(t, err)
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(AccessSecretEnv, "")
	t.Setenv(AccessSecretFallbackEnv, "  legacy-secret  ")

	got, err := SecretFromEnv(AccessSecretEnv, AccessSecretFallbackEnv)
	require.NoError(t, err)
	require.Equal(t, "legacy-secret", string(got))

	t.Setenv(AccessSecretEnv, "primary")
	got, err = SecretFromEnv(AccessSecretEnv, AccessSecretFallbackEnv)
	require.NoError(t, err)
	require.Equal(t, "primary", string(got))

	t.Setenv(AccessSecretEnv, "")
	t.Setenv(AccessSecretFallbackEnv, "")
	_, err = SecretFromEnv(AccessSecretEnv, AccessSecretFallbackEnv)
	require.ErrorIs(t, err, ErrSecretMissing)

	require.ErrorIs(t, ValidateSecret([]byte("short"), 32), ErrSecretTooShort)
	require.NoError(t, ValidateSecret(accessSecret, 32))
}

func mustSign(t *testing.T, c Claims, secret []byte) string {
	t.Helper()
	s, err := Sign(c, secret, time.Minute, t0)
	require.NoError(t, err)
	return s
}

func unsignedNone(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "tokenType": "access", "exp": t0.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func flip(s string) string {
	if strings.HasPrefix(s, "A") {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}
