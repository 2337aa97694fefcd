// Package observability builds the process logger and registers the
// Prometheus metrics for authentication decisions and HTTP traffic.
package observability
