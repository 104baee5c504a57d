package supabase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifier(t *testing.T) {
	_, err := NewHMACVerifier("", 0)
	require.Error(t, err)

	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)
	ctx := context.Background()

	claims, err := v.Verify(ctx, signToken(t, "user-1", "a@b.co", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiry(), 5*time.Second)

	_, err = v.Verify(ctx, signToken(t, "user-1", "a@b.co", -time.Minute))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	lenient, err := NewHMACVerifier(testSecret, 5*time.Minute)
	require.NoError(t, err)
	_, err = lenient.Verify(ctx, signToken(t, "user-1", "a@b.co", -time.Minute))
	assert.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(ctx, noExp)
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.Error(t, err)
}

func TestHMACVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), hs512)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseUnverified(t *testing.T) {
	raw := signToken(t, "user-1", "a@b.co", time.Hour)
	claims, err := ParseUnverified(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = ParseUnverified("garbage")
	assert.Error(t, err)

	var nilClaims *AccessClaims
	assert.True(t, nilClaims.Expiry().IsZero())
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "key-1",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	_, err = NewJWKSVerifier(ctx, "", "")
	require.Error(t, err)

	issuer := srv.URL + "/auth/v1"
	v, err := NewJWKSVerifier(ctx, issuer, srv.URL+"/auth/v1/.well-known/jwks.json")
	require.NoError(t, err)

	sign := func(iss string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, AccessClaims{
			Email: "a@b.co",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss,
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tok.Header["kid"] = "key-1"
		raw, err := tok.SignedString(key)
		require.NoError(t, err)
		return raw
	}

	claims, err := v.Verify(ctx, sign(issuer))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)

	_, err = v.Verify(ctx, sign("https://elsewhere.example"))
	assert.Error(t, err)

	_, err = v.Verify(ctx, signToken(t, "user-1", "a@b.co", time.Hour))
	assert.Error(t, err, "HS256 tokens are not accepted by the key-set verifier")
}
