package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/ports"
)

// EnforcementMode controls whether the gate checks credentials at all.
// It is resolved once at startup and never changes afterwards.
type EnforcementMode int

const (
	ModeUnconfigured EnforcementMode = iota
	ModeSecure
	ModeDisabled
)

func (m EnforcementMode) String() string {
	switch m {
	case ModeSecure:
		return "secure"
	case ModeDisabled:
		return "disabled"
	default:
		return "unconfigured"
	}
}

var (
	ErrPartialVerifierConfig  = errors.New("auth issuer and audience must be configured together")
	ErrUnconfiguredProduction = errors.New("auth is not configured in a production environment; configure an issuer and audience or disable auth explicitly")
)

// AuthSettings is the startup input for ResolveEnforcementMode.
type AuthSettings struct {
	Environment string
	Disabled    bool
	Issuer      string
	Audience    string
}

func IsProduction(environment string) bool {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "production", "prod":
		return true
	}
	return false
}

// ResolveEnforcementMode picks the mode: explicit disable wins, then full
// verifier material selects secure mode, otherwise the gate is unconfigured.
// Running unconfigured in production is an error.
func ResolveEnforcementMode(cfg AuthSettings) (EnforcementMode, error) {
	if cfg.Disabled {
		return ModeDisabled, nil
	}

	hasIssuer := strings.TrimSpace(cfg.Issuer) != ""
	hasAudience := strings.TrimSpace(cfg.Audience) != ""
	if hasIssuer != hasAudience {
		return ModeUnconfigured, ErrPartialVerifierConfig
	}
	if hasIssuer {
		return ModeSecure, nil
	}
	if IsProduction(cfg.Environment) {
		return ModeUnconfigured, ErrUnconfiguredProduction
	}
	return ModeUnconfigured, nil
}

// AuthPolicy names the scopes the gate enforces.
type AuthPolicy struct {
	ReadScope  string
	WriteScope string
	// RequireReadScope gates list and get operations with ReadScope.
	RequireReadScope bool
}

// AuthService is the authorization gate. Authenticate answers whether a valid
// credential is present, Authorize whether it carries a scope; callers compose
// the two.
type AuthService struct {
	mode     EnforcementMode
	verifier ports.TokenVerifier
	policy   AuthPolicy
}

func NewAuthService(mode EnforcementMode, verifier ports.TokenVerifier, policy AuthPolicy) (*AuthService, error) {
	if mode == ModeSecure && verifier == nil {
		return nil, errors.New("secure auth mode requires a token verifier")
	}
	if policy.WriteScope == "" {
		return nil, errors.New("write scope must not be empty")
	}
	if policy.RequireReadScope && policy.ReadScope == "" {
		return nil, errors.New("read scope must not be empty when it is required")
	}
	return &AuthService{mode: mode, verifier: verifier, policy: policy}, nil
}

// ReadScope returns the scope gating reads, or "" when reads are open.
func (s *AuthService) ReadScope() string {
	if !s.policy.RequireReadScope {
		return ""
	}
	return s.policy.ReadScope
}

func (s *AuthService) WriteScope() string {
	return s.policy.WriteScope
}

// Authenticate resolves the caller from a bearer token. Outside secure mode
// every caller is a bypass principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if s.mode != ModeSecure {
		return domain.Principal{Subject: "anonymous", Bypass: true}, nil
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}

	principal, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return domain.Principal{}, err
	}
	return principal, nil
}

// Authorize checks that principal carries scope.
func (s *AuthService) Authorize(principal domain.Principal, scope string) error {
	if s.mode != ModeSecure || scope == "" {
		return nil
	}
	if !principal.HasScope(scope) {
		return fmt.Errorf("%w: %s required", domain.ErrForbidden, scope)
	}
	return nil
}
