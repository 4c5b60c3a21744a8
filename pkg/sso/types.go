package sso

import "fmt"

// FederatedUser is the identity handed back by the external identity
// provider after a completed login, reduced to the fields this service
// cares about.
type FederatedUser struct {
	// Subject is the provider's stable identifier for the user.
	Subject string
	Email   string
	Name    string
	// Roles are the provider-side role names, before mapping to local roles.
	Roles []string
}

// Config holds the OpenID Connect provider settings.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// SkipIssuerCheck relaxes issuer validation for providers whose
	// discovery document advertises a different issuer URL.
	SkipIssuerCheck bool
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("scopes are required")
	}

	hasOpenID := false
	for _, scope := range c.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("'openid' scope is required")
	}

	return nil
}

// Session is the result of a completed login: application tokens plus the
// provisioned local user.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         SessionUser `json:"user"`
}

// SessionUser is the user summary embedded in a login response.
type SessionUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}
