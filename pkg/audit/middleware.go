package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/platinummonkey/cove/pkg/async"
	"github.com/platinummonkey/cove/pkg/contextkeys"
	"github.com/platinummonkey/cove/pkg/httputil"
	"github.com/platinummonkey/cove/pkg/observability"
)

const recordTimeout = 5 * time.Second

// Middleware records every mutating request to the store. Writes happen in the
// background; a failing sink is logged and never surfaces to the client.
func Middleware(store Store, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			entry := Entry{
				RequestID: contextkeys.RequestID(r.Context()),
				ActorID:   httputil.Actor(r),
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    recorder.status,
				Duration:  time.Since(start),
				Time:      start.UTC(),
			}
			async.SafeGo(r.Context(), logger, recordTimeout, "audit record", func(ctx context.Context) error {
				return store.Record(ctx, entry)
			})
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
