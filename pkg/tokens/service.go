package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingMethod is fixed: RS256 over the persisted RSA key pair.
var signingMethod = jwt.SigningMethodRS256

// Config tunes a Service. Zero values fall back to the package defaults.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service mints and verifies signed identity tokens. All operations are pure
// functions over (claims, key, clock); there is no storage and no retry
// policy because there is nothing to retry.
type Service struct {
	keys       *KeyPair
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates a token service over the given key pair.
func NewService(keys *KeyPair, cfg Config) *Service {
	s := &Service{
		keys:       keys,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	if s.audience == "" {
		s.audience = DefaultAudience
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTLSeconds * time.Second
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTLSeconds * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IssueAccessToken mints a short-lived access token embedding the subject's
// identity and role-name list. A non-positive ttl uses the configured default.
func (s *Service) IssueAccessToken(subject, email, name string, roles []string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	now := s.now().UTC()
	claims := Claims{
		Email: email,
		Name:  name,
		Roles: roles,
		Type:  string(TypeAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.keys.Private)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken mints a long-lived refresh token. It deliberately carries
// only the subject, no authorization claims. A non-positive ttl uses the
// configured default.
func (s *Service) IssueRefreshToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.refreshTTL
	}
	now := s.now().UTC()
	claims := Claims{
		Type: string(TypeRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.keys.Private)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// Validate verifies the token's signature, issuer, audience, expiry and type
// discriminator and returns the embedded Principal. Validation is
// all-or-nothing: on any failure the result is nil and exactly one of the
// package error kinds.
func (s *Service) Validate(tokenString string, expected TokenType) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, mapParseError(err)
	}

	if claims.Type != string(expected) {
		return nil, ErrTypeMismatch
	}

	return &Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Roles:   claims.Roles,
	}, nil
}

// RefreshAccessToken validates refreshToken as a refresh token, checks that
// its embedded subject equals subject, and mints a new access token binding
// the caller-supplied current email, name and roles rather than any stale
// claims.
func (s *Service) RefreshAccessToken(refreshToken, subject, email, name string, roles []string) (string, error) {
	principal, err := s.Validate(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}
	if principal.Subject != subject {
		return "", ErrSubjectMismatch
	}
	return s.IssueAccessToken(subject, email, name, roles, 0)
}

// RemainingTTL reports the clamped non-negative seconds until the token's
// expiry. It tolerates an already-expired token (returns 0 rather than
// ErrExpired) but still enforces signature, issuer, audience and type checks.
func (s *Service) RemainingTTL(tokenString string, expected TokenType) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return 0, mapParseError(err)
	}

	// Claims validation was skipped above to tolerate expiry; issuer and
	// audience are still enforced here.
	if claims.Issuer != s.issuer {
		return 0, ErrBadIssuer
	}
	if !audienceContains(claims.Audience, s.audience) {
		return 0, ErrBadAudience
	}
	if claims.Type != string(expected) {
		return 0, ErrTypeMismatch
	}
	if claims.ExpiresAt == nil {
		return 0, ErrMalformed
	}

	remaining := int64(claims.ExpiresAt.Time.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// AccessTTLSeconds reports the configured access-token lifetime, for use in
// token responses.
func (s *Service) AccessTTLSeconds() int64 {
	return int64(s.accessTTL.Seconds())
}

func (s *Service) keyFunc(token *jwt.Token) (interface{}, error) {
	return s.keys.Public, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// mapParseError collapses the library's joined parse errors into exactly one
// of the package failure kinds.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrBadIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrBadAudience
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
