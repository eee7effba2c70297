package api

import (
	"testing"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T, issuer string) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.JWTConfig{Secret: "s3cret", Issuer: issuer})
	require.NoError(t, err)
	m.now = func() time.Time { return testNow }
	return m
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(config.JWTConfig{})
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestTokens(t, "wardrobe")

	for _, p := range []domain.Principal{testRenter, testOwner, testArbitrator} {
		raw, err := m.Issue(p)
		require.NoError(t, err)

		got, err := m.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestTokenExpired(t *testing.T) {
	m := newTestTokens(t, "")
	raw, err := m.Issue(testRenter)
	require.NoError(t, err)

	m.now = func() time.Time { return testNow.Add(defaultTokenTTL + time.Minute) }
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejected(t *testing.T) {
	m := newTestTokens(t, "wardrobe")

	other := newTestTokens(t, "someone-else")
	foreign, err := other.Issue(testRenter)
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken, "issuer mismatch")

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "renter",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "101",
			Issuer:    "wardrobe",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	})
	raw, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "bad signature")

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "renter",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "101", Issuer: "wardrobe"},
	})
	raw, err = noExpiry.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "missing exp")

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "janitor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "101",
			Issuer:    "wardrobe",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	})
	raw, err = badRole.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "unknown role")

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
