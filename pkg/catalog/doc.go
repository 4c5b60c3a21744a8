// Package catalog is the single source of truth for permission identifiers.
//
// It maps (resource, action) pairs to permission strings of the form
// "resource:action", defines the built-in role templates seeded at bootstrap,
// and holds the fixed permission inheritance rules. The catalog is pure
// compiled-in configuration: no side effects, no I/O, not user-extensible at
// runtime.
//
// # Resolution
//
// Handlers declare requirements as (resource, action) pairs; Resolve maps
// them to the catalog permission:
//
//	perm, err := catalog.Resolve("forms", "archive") // form:archive
//
// An unregistered pair fails with *ErrUnknownResourceAction, which callers
// must treat as a configuration defect rather than an authorization denial.
//
// # Inheritance
//
// A small fixed rule set implies additional permissions from held ones, for
// example form:delete implies form:edit. ExpandInherited applies the rules in
// one pass; the rule set is shallow enough that no fixpoint iteration is
// needed.
package catalog
