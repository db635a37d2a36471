package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://tenant.test/"
	testAudience = "https://api.test"
	testKid      = "test-key-1"
)

func newJWKSServer(t *testing.T, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()

	doc := map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := newJWKSServer(t, &key.PublicKey)

	v, err := NewVerifier(Config{Domain: "tenant.test", Audience: testAudience})
	require.NoError(t, err)
	v.issuer = testIssuer
	v.jwksURL = srv.URL

	return v, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":      testIssuer,
		"aud":      testAudience,
		"sub":      "auth0|user123",
		"email":    "bidder@example.com",
		"nickname": "bidder",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
}

func TestVerify(t *testing.T) {
	t.Run("accepts a valid token", func(t *testing.T) {
		v, key := newTestVerifier(t)

		identity, err := v.Verify(context.Background(), signToken(t, key, testKid, validClaims()))

		require.NoError(t, err)
		assert.Equal(t, "auth0|user123", identity.Subject)
		assert.Equal(t, "bidder@example.com", identity.Email)
		assert.Equal(t, "bidder", identity.Nickname)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		v, key := newTestVerifier(t)

		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		_, err := v.Verify(context.Background(), signToken(t, key, testKid, claims))
		assert.Error(t, err)
	})

	t.Run("rejects a wrong audience", func(t *testing.T) {
		v, key := newTestVerifier(t)

		claims := validClaims()
		claims["aud"] = "https://someone-else.test"

		_, err := v.Verify(context.Background(), signToken(t, key, testKid, claims))
		assert.Error(t, err)
	})

	t.Run("rejects a wrong issuer", func(t *testing.T) {
		v, key := newTestVerifier(t)

		claims := validClaims()
		claims["iss"] = "https://evil.test/"

		_, err := v.Verify(context.Background(), signToken(t, key, testKid, claims))
		assert.Error(t, err)
	})

	t.Run("rejects an unknown kid", func(t *testing.T) {
		v, key := newTestVerifier(t)

		_, err := v.Verify(context.Background(), signToken(t, key, "rotated-away", validClaims()))
		assert.Error(t, err)
	})

	t.Run("rejects a token signed by another key", func(t *testing.T) {
		v, _ := newTestVerifier(t)

		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), signToken(t, other, testKid, validClaims()))
		assert.Error(t, err)
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		v, key := newTestVerifier(t)

		claims := validClaims()
		delete(claims, "sub")

		_, err := v.Verify(context.Background(), signToken(t, key, testKid, claims))
		assert.Error(t, err)
	})

	t.Run("caches the signing key between calls", func(t *testing.T) {
		v, key := newTestVerifier(t)

		_, err := v.Verify(context.Background(), signToken(t, key, testKid, validClaims()))
		require.NoError(t, err)

		// Second verification must not need the JWKS endpoint again.
		v.jwksURL = "http://127.0.0.1:0/unreachable"
		_, err = v.Verify(context.Background(), signToken(t, key, testKid, validClaims()))
		assert.NoError(t, err)
	})
}

func TestNewVerifierValidation(t *testing.T) {
	_, err := NewVerifier(Config{Audience: testAudience})
	assert.Error(t, err)

	_, err = NewVerifier(Config{Domain: "tenant.test"})
	assert.Error(t, err)
}
