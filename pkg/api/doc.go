// Package api wires the HTTP surface: authentication endpoints for the
// OIDC login flow and token refresh, role and assignment management, and
// audit trail access. Every management route sits behind the authorization
// gate; the required permission is declared where the route is registered.
package api
