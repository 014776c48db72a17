// Package jwtauth verifies OAuth2 access tokens issued as signed JWTs by a
// trusted issuer whose public keys are published as a JWKS document.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

var allowedAlgorithms = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// KeyProvider resolves a signing key by its key id.
type KeyProvider interface {
	Key(ctx context.Context, keyID string) (any, error)
}

type accessClaims struct {
	jwt.RegisteredClaims
	Scope       string   `json:"scope,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Verifier validates signature, issuer, audience and expiry of bearer tokens.
type Verifier struct {
	keys     KeyProvider
	issuer   string
	audience string
	leeway   time.Duration
}

func NewVerifier(keys KeyProvider, issuer, audience string, leeway time.Duration) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, audience: audience, leeway: leeway}
}

// DefaultJWKSURL is where issuers following the OpenID discovery layout
// publish their keys.
func DefaultJWKSURL(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"
}

// Verify returns the principal carried by token. Rejected tokens yield errors
// wrapping domain.ErrUnauthenticated; key set outages wrap ErrKeySetUnavailable.
func (v *Verifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid in token header")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		if errors.Is(err, ErrKeySetUnavailable) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing sub claim", domain.ErrUnauthenticated)
	}

	return domain.Principal{
		Subject: claims.Subject,
		Scopes:  mergeScopes(strings.Fields(claims.Scope), claims.Permissions),
	}, nil
}

func mergeScopes(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
