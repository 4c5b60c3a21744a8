// Package audit provides an append-only record of authorization decisions
// and entity mutations.
//
// The Recorder writes entries to the audit_logs table on a best-effort
// basis: insert failures are logged and counted but never propagate to the
// caller, so a broken audit path cannot fail the operation being audited.
// Entries naming a user that does not exist in the store are silently
// dropped. Recorded entries are never updated or deleted.
//
// Search and Export expose the recorded trail with entity, user, action and
// time-range filters, rendering to JSON or CSV.
package audit
