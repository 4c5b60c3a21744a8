// Package tokens implements the signed-token identity layer.
//
// Two token variants exist: short-lived access tokens carrying the subject's
// identity and role-name list, and long-lived refresh tokens carrying only
// the subject. Both are RS256-signed JWTs with a fixed issuer and audience
// and a "type" discriminator claim; a token validated as one type is never
// accepted as the other.
//
// The RSA key pair is generated once (2048 bits) and persisted as PEM files
// with restrictive permissions; the private key signs and the public key
// verifies, so verification never needs the signing secret.
//
// All operations are stateless pure functions over (claims, key, clock).
// Validation is all-or-nothing and maps every failure to exactly one of the
// exported error kinds so that the HTTP boundary can distinguish unauthorized
// from misconfigured.
package tokens
