// Package middleware provides HTTP middleware for authentication and
// request tracing. Authorization middleware lives in pkg/rbac since it
// needs the permission gate.
package middleware
