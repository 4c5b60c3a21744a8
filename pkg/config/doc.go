// Package config loads application configuration from FORMGATE_*
// environment variables with sensible defaults for local development.
package config
