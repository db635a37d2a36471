package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru"
)

// Identity is what a verified access token tells us about the caller.
type Identity struct {
	Subject  string
	Email    string
	Nickname string
}

type Config struct {
	Domain   string `toml:"domain"`
	Audience string `toml:"audience"`
}

// Verifier validates RS256 access tokens against the tenant's JWKS
// endpoint. Signing keys are cached by kid; an unknown kid triggers a
// refetch, which is how key rotation is picked up.
type Verifier struct {
	issuer   string
	audience string
	jwksURL  string
	keys     *lru.Cache
	client   *http.Client
}

const jwksCacheSize = 16

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("auth domain is required")
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("auth audience is required")
	}

	cache, err := lru.New(jwksCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create key cache: %w", err)
	}

	return &Verifier{
		issuer:   fmt.Sprintf("https://%s/", cfg.Domain),
		audience: cfg.Audience,
		jwksURL:  fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Domain),
		keys:     cache,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Verify checks the token's signature and claims and returns the caller's
// identity.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("token has no kid header")
			}
			return v.signingKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	email, _ := claims["email"].(string)
	nickname, _ := claims["nickname"].(string)

	return &Identity{Subject: sub, Email: email, Nickname: nickname}, nil
}

func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if cached, ok := v.keys.Get(kid); ok {
		return cached.(*rsa.PublicKey), nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	cached, ok := v.keys.Get(kid)
	if !ok {
		return nil, fmt.Errorf("no signing key with kid %q", kid)
	}
	return cached.(*rsa.PublicKey), nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build jwks request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	for _, key := range doc.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(key.N, key.E)
		if err != nil {
			return fmt.Errorf("failed to parse jwks key %q: %w", key.Kid, err)
		}
		v.keys.Add(key.Kid, pub)
	}
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
