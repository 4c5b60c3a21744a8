// Package observability provides structured JSON logging, Prometheus
// metrics and health checking for the formgate server.
package observability
