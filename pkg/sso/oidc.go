package sso

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Provider implements the OpenID Connect login flow: it builds the redirect
// URL, exchanges the authorization code, verifies the ID token, and extracts
// the federated identity.
type Provider struct {
	config       Config
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewProvider discovers the OIDC provider and prepares the OAuth2 client.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OIDC config: %w", err)
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:        config.ClientID,
		SkipIssuerCheck: config.SkipIssuerCheck,
	})

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
	}

	return &Provider{
		config:       config,
		provider:     provider,
		verifier:     verifier,
		oauth2Config: oauth2Config,
	}, nil
}

// AuthCodeURL builds the authorization redirect URL carrying the given state
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for provider tokens, verifies the
// ID token, and returns the federated identity.
func (p *Provider) Exchange(ctx context.Context, code string) (*FederatedUser, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	user := &FederatedUser{
		Subject: idToken.Subject,
		Email:   getStringClaim(claims, "email"),
		Name:    getStringClaim(claims, "name"),
		Roles:   extractRoles(claims, p.config.ClientID),
	}

	// The ID token may be sparse; fill gaps from the userinfo endpoint.
	if user.Email == "" || user.Name == "" {
		if info, err := p.fetchUserInfo(ctx, oauth2Token); err == nil {
			if user.Email == "" {
				user.Email = getStringClaim(info, "email")
			}
			if user.Name == "" {
				user.Name = getStringClaim(info, "name")
			}
		}
	}

	if user.Name == "" {
		given := getStringClaim(claims, "given_name")
		family := getStringClaim(claims, "family_name")
		if given != "" || family != "" {
			user.Name = joinName(given, family)
		}
	}

	if user.Subject == "" {
		return nil, fmt.Errorf("missing subject in ID token")
	}
	if user.Email == "" {
		return nil, fmt.Errorf("missing email in ID token")
	}

	return user, nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]interface{}, error) {
	userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, err
	}

	var claims map[string]interface{}
	if err := userInfo.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// extractRoles pulls provider-side role names out of the ID token claims.
// Client roles live under resource_access.<client_id>.roles; realm-wide
// roles under realm_access.roles are the fallback.
func extractRoles(claims map[string]interface{}, clientID string) []string {
	if resourceAccess, ok := claims["resource_access"].(map[string]interface{}); ok {
		if client, ok := resourceAccess[clientID].(map[string]interface{}); ok {
			if roles := getStringSlice(client, "roles"); len(roles) > 0 {
				return roles
			}
		}
	}

	if realmAccess, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles := getStringSlice(realmAccess, "roles"); len(roles) > 0 {
			return roles
		}
	}

	return nil
}

func getStringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func getStringSlice(claims map[string]interface{}, key string) []string {
	raw, ok := claims[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func joinName(given, family string) string {
	switch {
	case given == "":
		return family
	case family == "":
		return given
	default:
		return given + " " + family
	}
}
