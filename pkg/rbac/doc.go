// Package rbac implements role storage, permission resolution and the
// authorization gate.
//
// The Store persists users, roles and role assignments with soft deletes.
// The Resolver computes a user's effective permission set fresh on every
// call, unioning the permissions of actively assigned roles and applying
// the catalog's inheritance rules, so revocations take effect immediately.
// The Gate is the single decision point for protected operations: it
// resolves required permissions through the catalog, returns structured
// denials, and records denials and sensitive grants through the audit
// recorder.
package rbac
