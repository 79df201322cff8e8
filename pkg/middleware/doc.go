// Package middleware provides HTTP middleware for the public API surface.
//
// Request-shape middleware (request IDs, logging, recovery, body limits) lives
// in pkg/httputil; this package holds policy middleware that needs its own
// state, currently per-actor rate limiting.
package middleware
