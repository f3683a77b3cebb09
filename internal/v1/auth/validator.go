package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CustomClaims is the session token's payload. The auth service that
// issues these tokens is a separate HTTP service; this package only
// verifies what it signed.
type CustomClaims struct {
	Scope string `json:"scope"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies HS256 session tokens against a shared secret. The
// auth service and this backend are both configured with the same
// SECRET_KEY_BASE; there is no JWKS endpoint to fetch keys from.
type Validator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewValidator builds a Validator from the shared secret. issuer and
// audience are optional; an empty string skips that claim check.
func NewValidator(secret, issuer, audience string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("auth: secret key must not be empty")
	}
	return &Validator{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// ValidateToken parses and verifies tokenString, rejecting anything not
// signed with HS256 to rule out algorithm-confusion attacks where an
// attacker supplies an RS256-style token and hopes the verifier is
// tricked into treating a public value as the HMAC secret.
func (v *Validator) ValidateToken(tokenString string) (*CustomClaims, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, keyFunc, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("failed to cast claims to CustomClaims")
	}
	return claims, nil
}

// GetAllowedOriginsFromEnv reads a comma-separated origin list from an
// environment variable, falling back to defaultEnvs for local dev.
func GetAllowedOriginsFromEnv(envVarName string, defaultEnvs []string) []string {
	originsStr := os.Getenv(envVarName)
	if originsStr == "" {
		logging.Warn(context.Background(), fmt.Sprintf("%s not set, using default origins", envVarName))
		return defaultEnvs
	}
	return strings.Split(originsStr, ",")
}

// MockValidator accepts any token without checking its signature, for
// local development. Claims are read from the payload of a three-part
// JWT; any claim that is missing, or a token that cannot be decoded,
// yields default dev values. It never runs in production: main.go only
// constructs one when APP_ENV is "development".
type MockValidator struct{}

func (m *MockValidator) ValidateToken(tokenString string) (*CustomClaims, error) {
	var subject, name, email string

	parts := strings.Split(tokenString, ".")
	if len(parts) == 3 {
		if payload, err := base64.RawURLEncoding.DecodeString(parts[1]); err == nil {
			var raw map[string]interface{}
			if json.Unmarshal(payload, &raw) == nil {
				if s, ok := raw["sub"].(string); ok {
					subject = s
				}
				if n, ok := raw["name"].(string); ok {
					name = n
				}
				if e, ok := raw["email"].(string); ok {
					email = e
				}
			}
		}
	}

	if subject == "" {
		subject = "dev-user-123"
	}
	if name == "" {
		name = "Dev User"
	}
	if email == "" {
		email = "dev@example.com"
	}

	logging.Info(context.Background(), "mock validator parsed token",
		zap.String("subject", subject), zap.String("name", name))

	claims := &CustomClaims{Name: name, Email: email}
	claims.Subject = subject
	return claims, nil
}
