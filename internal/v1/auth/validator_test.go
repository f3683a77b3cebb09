package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestValidateToken_AcceptsValidHS256(t *testing.T) {
	v, err := NewValidator("super-secret", "", "")
	require.NoError(t, err)

	claims := &CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := signToken(t, []byte("super-secret"), jwt.SigningMethodHS256, claims)

	got, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	v, err := NewValidator("super-secret", "", "")
	require.NoError(t, err)

	claims := &CustomClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token := signToken(t, []byte("wrong-secret"), jwt.SigningMethodHS256, claims)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	v, err := NewValidator("super-secret", "", "")
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.ValidateToken(unsigned)
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	v, err := NewValidator("super-secret", "", "")
	require.NoError(t, err)

	claims := &CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	token := signToken(t, []byte("super-secret"), jwt.SigningMethodHS256, claims)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_ChecksIssuerAndAudience(t *testing.T) {
	v, err := NewValidator("super-secret", "scribble-auth", "scribble-backend")
	require.NoError(t, err)

	claims := &CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{"scribble-backend"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := signToken(t, []byte("super-secret"), jwt.SigningMethodHS256, claims)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewValidator_RejectsEmptySecret(t *testing.T) {
	_, err := NewValidator("", "", "")
	assert.Error(t, err)
}
