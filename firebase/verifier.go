// Package firebase talks to the external identity provider: it verifies
// Firebase ID tokens and manages accounts through the Identity Toolkit API.
package firebase

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker/v2"
)

// DefaultJWKSURL serves the public keys for Firebase ID tokens
const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

var (
	// ErrInvalidToken is returned when the token is malformed or its signature fails
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer does not match the project
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience does not match the project
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrJWKSFetchFailed is returned when signing keys cannot be retrieved
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Claims are the claims carried by a Firebase ID token
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	AuthTime      int64  `json:"auth_time,omitempty"`

	// Custom claims set through the admin API
	Role    string `json:"role,omitempty"`
	PilotID string `json:"pilotId,omitempty"`
}

// Token is a verified ID token
type Token struct {
	UID           string
	Email         string
	EmailVerified bool
	Role          string
	PilotID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Config holds configuration for Verifier. MinRefreshInterval spaces out key
// refreshes forced by an unknown kid.
type Config struct {
	ProjectID          string
	JWKSURL            string
	CacheTTL           time.Duration
	HTTPTimeout        time.Duration
	MinRefreshInterval time.Duration
}

// Verifier validates Firebase ID tokens
type Verifier struct {
	projectID  string
	issuer     string
	jwksURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*JWKS]
	now        func() time.Time

	jwksCache    *JWKS
	jwksCacheExp time.Time
	jwksCacheTTL time.Duration
	cacheMu      sync.RWMutex

	keyCache   map[string]*rsa.PublicKey
	keyCacheMu sync.RWMutex

	minRefresh   time.Duration
	lastForced   time.Time
	lastForcedMu sync.Mutex
}

// NewVerifier creates a verifier for the given project
func NewVerifier(cfg Config) *Verifier {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if cfg.MinRefreshInterval == 0 {
		cfg.MinRefreshInterval = time.Minute
	}

	return &Verifier{
		projectID:    cfg.ProjectID,
		issuer:       "https://securetoken.google.com/" + cfg.ProjectID,
		jwksURL:      cfg.JWKSURL,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		breaker:      newJWKSBreaker(),
		now:          time.Now,
		jwksCacheTTL: cfg.CacheTTL,
		keyCache:     make(map[string]*rsa.PublicKey),
		minRefresh:   cfg.MinRefreshInterval,
	}
}

// newJWKSBreaker stops hammering the key endpoint after repeated failures.
// While open, verification fails immediately.
func newJWKSBreaker() *gobreaker.CircuitBreaker[*JWKS] {
	return gobreaker.NewCircuitBreaker[*JWKS](gobreaker.Settings{
		Name:        "firebase-jwks",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// VerifyIDToken validates signature, issuer, audience and expiry of an ID token
func (v *Verifier) VerifyIDToken(ctx context.Context, tokenString string) (*Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		return v.getPublicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrInvalidIssuer
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrInvalidAudience
		case errors.Is(err, ErrJWKSFetchFailed):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || len(claims.Subject) > 128 {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	if claims.AuthTime > v.now().Unix() {
		return nil, fmt.Errorf("%w: auth_time in the future", ErrInvalidToken)
	}

	parsed := &Token{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Role:          claims.Role,
		PilotID:       claims.PilotID,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}

// FetchJWKS returns the cached key set, refreshing it through the circuit breaker
func (v *Verifier) FetchJWKS(ctx context.Context) (*JWKS, error) {
	v.cacheMu.RLock()
	if v.jwksCache != nil && v.now().Before(v.jwksCacheExp) {
		defer v.cacheMu.RUnlock()
		return v.jwksCache, nil
	}
	v.cacheMu.RUnlock()

	jwks, err := v.breaker.Execute(func() (*JWKS, error) {
		return v.fetchJWKS(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	v.cacheMu.Lock()
	v.jwksCache = jwks
	v.jwksCacheExp = v.now().Add(v.jwksCacheTTL)
	v.cacheMu.Unlock()

	return jwks, nil
}

func (v *Verifier) fetchJWKS(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}
	return &jwks, nil
}

// getPublicKey retrieves the public key for a given kid. An unknown kid
// forces a refresh so rotated keys are picked up before the cache expires,
// at most once per MinRefreshInterval.
func (v *Verifier) getPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.keyCacheMu.RLock()
	if key, exists := v.keyCache[kid]; exists {
		v.keyCacheMu.RUnlock()
		return key, nil
	}
	v.keyCacheMu.RUnlock()

	jwk, err := v.findKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	if jwk == nil && v.allowForcedRefresh() {
		v.InvalidateCache()
		if jwk, err = v.findKey(ctx, kid); err != nil {
			return nil, err
		}
	}
	if jwk == nil {
		return nil, fmt.Errorf("key with kid %s not found in JWKS", kid)
	}

	publicKey, err := jwkToRSAPublicKey(jwk)
	if err != nil {
		return nil, fmt.Errorf("failed to convert JWK to RSA public key: %w", err)
	}

	v.keyCacheMu.Lock()
	v.keyCache[kid] = publicKey
	v.keyCacheMu.Unlock()

	return publicKey, nil
}

func (v *Verifier) allowForcedRefresh() bool {
	v.lastForcedMu.Lock()
	defer v.lastForcedMu.Unlock()

	now := v.now()
	if !v.lastForced.IsZero() && now.Sub(v.lastForced) < v.minRefresh {
		return false
	}
	v.lastForced = now
	return true
}

func (v *Verifier) findKey(ctx context.Context, kid string) (*JWK, error) {
	jwks, err := v.FetchJWKS(ctx)
	if err != nil {
		return nil, err
	}
	for i := range jwks.Keys {
		if jwks.Keys[i].Kid == kid {
			return &jwks.Keys[i], nil
		}
	}
	return nil, nil
}

// jwkToRSAPublicKey converts a JWK to an RSA public key
func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "" && jwk.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %s", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// InvalidateCache drops cached keys so the next verification refetches them
func (v *Verifier) InvalidateCache() {
	v.cacheMu.Lock()
	v.jwksCache = nil
	v.jwksCacheExp = time.Time{}
	v.cacheMu.Unlock()

	v.keyCacheMu.Lock()
	v.keyCache = make(map[string]*rsa.PublicKey)
	v.keyCacheMu.Unlock()
}
