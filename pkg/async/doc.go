// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery, timeout
// enforcement, and context cancellation for fire-and-forget work that must never
// take the serving path down with it.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, logger, 30*time.Second, "audit record", func(ctx context.Context) error {
//		return store.Record(ctx, entry)
//	})
//
// # Use Cases
//
// Audit trail writes, invite pruning, analytics, cache warming
package async
