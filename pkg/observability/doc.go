// Package observability provides structured logging and Prometheus metrics
// for the organization service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org_id", orgID).Info("organization created")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.OperationsTotal.WithLabelValues("create_organization", "ok").Inc()
//	metrics.CompensationsTotal.WithLabelValues("add_or_update_member").Inc()
package observability
