package jwtauth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrKeySetUnavailable means the signing keys could not be fetched. It is an
// infrastructure failure, not a verdict on the presented token.
var ErrKeySetUnavailable = errors.New("signing key set unavailable")

var errKeyNotFound = errors.New("signing key not found")

const (
	maxJWKSBodySize = 1 << 20
	// minRefreshInterval throttles refetches triggered by unknown key ids.
	minRefreshInterval = 30 * time.Second
)

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	KeyType string `json:"kty"`
	Use     string `json:"use,omitempty"`
	KeyID   string `json:"kid"`
	N       string `json:"n,omitempty"`
	E       string `json:"e,omitempty"`
	Curve   string `json:"crv,omitempty"`
	X       string `json:"x,omitempty"`
	Y       string `json:"y,omitempty"`
}

// KeySet fetches the issuer's JSON Web Key Set and caches the public keys for
// ttl. It is safe for concurrent use.
type KeySet struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]any
	fetchedAt time.Time

	refreshMu sync.Mutex
}

func NewKeySet(url string, ttl time.Duration, httpClient *http.Client) *KeySet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &KeySet{url: url, ttl: ttl, httpClient: httpClient, keys: map[string]any{}}
}

// Key returns the public key for keyID, refreshing the set when the cache is
// stale or the key id is unknown.
func (k *KeySet) Key(ctx context.Context, keyID string) (any, error) {
	key, fresh, lastFetch := k.lookup(keyID)
	if key != nil && fresh {
		return key, nil
	}
	if key == nil && fresh && time.Since(lastFetch) < minRefreshInterval {
		return nil, fmt.Errorf("%w: %s", errKeyNotFound, keyID)
	}

	if err := k.refresh(ctx, lastFetch); err != nil {
		return nil, err
	}

	key, _, _ = k.lookup(keyID)
	if key == nil {
		return nil, fmt.Errorf("%w: %s", errKeyNotFound, keyID)
	}
	return key, nil
}

func (k *KeySet) lookup(keyID string) (any, bool, time.Time) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	fresh := !k.fetchedAt.IsZero() && time.Since(k.fetchedAt) < k.ttl
	return k.keys[keyID], fresh, k.fetchedAt
}

// refresh refetches the set unless another caller already did so after seen.
func (k *KeySet) refresh(ctx context.Context, seen time.Time) error {
	k.refreshMu.Lock()
	defer k.refreshMu.Unlock()

	k.mu.RLock()
	alreadyRefreshed := k.fetchedAt.After(seen)
	k.mu.RUnlock()
	if alreadyRefreshed {
		return nil
	}

	set, err := k.fetch(ctx)
	if err != nil {
		return err
	}

	keys := make(map[string]any, len(set.Keys))
	for i := range set.Keys {
		entry := &set.Keys[i]
		if entry.KeyID == "" || (entry.Use != "" && entry.Use != "sig") {
			continue
		}
		key, err := publicKey(entry)
		if err != nil {
			continue
		}
		keys[entry.KeyID] = key
	}

	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = time.Now()
	k.mu.Unlock()
	return nil
}

func (k *KeySet) fetch(ctx context.Context) (*jwks, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrKeySetUnavailable, k.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	var set jwks
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrKeySetUnavailable, err)
	}
	return &set, nil
}

func publicKey(entry *jwk) (any, error) {
	switch entry.KeyType {
	case "RSA":
		return rsaPublicKey(entry)
	case "EC":
		return ecdsaPublicKey(entry)
	default:
		return nil, fmt.Errorf("unsupported key type: %s", entry.KeyType)
	}
}

func rsaPublicKey(entry *jwk) (*rsa.PublicKey, error) {
	if entry.N == "" || entry.E == "" {
		return nil, errors.New("missing RSA key parameters")
	}
	n, err := base64.RawURLEncoding.DecodeString(entry.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(entry.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

func ecdsaPublicKey(entry *jwk) (*ecdsa.PublicKey, error) {
	if entry.X == "" || entry.Y == "" || entry.Curve == "" {
		return nil, errors.New("missing EC key parameters")
	}
	var curve elliptic.Curve
	switch entry.Curve {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", entry.Curve)
	}
	x, err := base64.RawURLEncoding.DecodeString(entry.X)
	if err != nil {
		return nil, fmt.Errorf("decode x coordinate: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(entry.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
