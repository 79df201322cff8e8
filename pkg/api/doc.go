// Package api exposes the organization engine over HTTP.
//
// Routes are registered on a gorilla/mux router. The caller identity is read
// from the X-User-Id header established by the fronting auth proxy; the
// engine enforces all per-organization permissions, so handlers stay thin:
// parse, delegate, write.
package api
