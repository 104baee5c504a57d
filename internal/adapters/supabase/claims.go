package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the access-token claims the client relies on.
type AccessClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, zero when absent.
func (c *AccessClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenVerifier checks the signature of an access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*AccessClaims, error)
}

// HMACVerifier verifies HS256 tokens signed with the project's JWT secret.
type HMACVerifier struct {
	secret []byte
	leeway time.Duration
}

// NewHMACVerifier creates a verifier for secret.
func NewHMACVerifier(secret string, leeway time.Duration) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &HMACVerifier{secret: []byte(secret), leeway: leeway}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.leeway > 0 {
		options = append(options, jwt.WithLeeway(v.leeway))
	}
	token, err := jwt.NewParser(options...).ParseWithClaims(raw, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWKSVerifier verifies asymmetrically signed tokens against the backend's
// published key set.
type JWKSVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewJWKSVerifier creates a verifier that fetches keys from jwksURL. An
// empty issuer skips the iss check. Keys are fetched lazily and cached by go-oidc.
func NewJWKSVerifier(ctx context.Context, issuer, jwksURL string) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	keySet := gooidc.NewRemoteKeySet(ctx, jwksURL)
	cfg := &gooidc.Config{
		SkipClientIDCheck: true,
		SkipIssuerCheck:   issuer == "",
		SupportedSigningAlgs: []string{
			gooidc.RS256, gooidc.ES256,
		},
	}
	return &JWKSVerifier{verifier: gooidc.NewVerifier(issuer, keySet, cfg)}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (*AccessClaims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	var claims AccessClaims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode access token claims: %w", err)
	}
	return &claims, nil
}

// ParseUnverified decodes the claims of raw without checking its signature.
// It is used only to read exp and sub from tokens the backend just issued.
func ParseUnverified(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &claims, nil
}
