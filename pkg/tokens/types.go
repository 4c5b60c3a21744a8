package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access tokens from refresh tokens. A token validated
// as one type is never accepted as the other.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Default token configuration
const (
	DefaultIssuer   = "transportation-forms-api"
	DefaultAudience = "transportation-forms-web"

	// DefaultAccessTTL is 30 minutes, DefaultRefreshTTL is 7 days.
	DefaultAccessTTLSeconds  = 30 * 60
	DefaultRefreshTTLSeconds = 7 * 24 * 60 * 60
)

// Claims is the JWT claim set for both token variants. Refresh tokens carry
// only the registered claims plus the type discriminator; the authorization
// claims stay empty to minimize blast radius if the token leaks.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"type"`
	jwt.RegisteredClaims
}

// Principal is the authenticated identity reconstructed from a validated
// token. It is request-scoped and never persisted.
type Principal struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// HasRole reports whether the token-embedded role list contains name.
func (p *Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}
