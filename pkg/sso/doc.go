// Package sso implements the federated login flow: OpenID Connect
// discovery and code exchange, a redis-backed single-use state store for
// CSRF protection, and just-in-time provisioning of local users and role
// assignments from the identity provider's claims.
package sso
