package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/cove/pkg/audit"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/httputil"
	"github.com/platinummonkey/cove/pkg/middleware"
	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/platinummonkey/cove/pkg/orgs"
	"github.com/platinummonkey/cove/pkg/sso"
)

const maxRequestBody = 1 << 20 // 1 MiB

// RouterDeps carries everything the API router needs.
type RouterDeps struct {
	Service    *orgs.Service
	Authorizer authz.Authorizer
	SSO        sso.Storage
	Audit      audit.Store
	RateLimit  *middleware.RateLimiter
	Logger     *observability.Logger
}

// NewRouter builds the API router with middleware and all routes registered
func NewRouter(deps RouterDeps) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthz).Methods("GET")

	NewOrgHandlers(deps.Service).RegisterRoutes(router)
	sso.NewHandlers(deps.SSO, deps.Authorizer).RegisterRoutes(router)

	limiter := deps.RateLimit
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}

	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(deps.Logger),
		httputil.RecoveryMiddleware(deps.Logger),
		limiter.Middleware,
		audit.Middleware(deps.Audit, deps.Logger),
		httputil.MaxBytesMiddleware(maxRequestBody),
	)(router)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
