package tokens

import "errors"

// Validation failure kinds. Validate is all-or-nothing: it returns either a
// fully populated Principal or exactly one of these.
var (
	// ErrMalformed indicates the token string could not be parsed.
	ErrMalformed = errors.New("tokens: malformed token")

	// ErrBadSignature indicates the signature did not verify against the
	// public key.
	ErrBadSignature = errors.New("tokens: invalid token signature")

	// ErrBadIssuer indicates the embedded issuer claim did not match.
	ErrBadIssuer = errors.New("tokens: invalid token issuer")

	// ErrBadAudience indicates the embedded audience claim did not match.
	ErrBadAudience = errors.New("tokens: invalid token audience")

	// ErrExpired indicates the current time exceeds the embedded expiry.
	ErrExpired = errors.New("tokens: token has expired")

	// ErrTypeMismatch indicates the embedded type discriminator did not
	// equal the expected token type.
	ErrTypeMismatch = errors.New("tokens: token type mismatch")

	// ErrSubjectMismatch indicates a refresh token whose embedded subject
	// does not equal the subject a new access token was requested for.
	ErrSubjectMismatch = errors.New("tokens: refresh token subject mismatch")
)
