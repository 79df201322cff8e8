package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Engine metrics
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	CompensationsTotal *prometheus.CounterVec

	// Membership metrics
	MembersTotal       prometheus.Gauge
	OrganizationsTotal prometheus.Gauge

	// Permission metrics
	PermissionChecksTotal *prometheus.CounterVec
	PermissionCacheHits   prometheus.Counter
	PermissionCacheMisses prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cove_org_operations_total",
				Help: "Total number of organization engine operations",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cove_org_operation_duration_seconds",
				Help:    "Organization engine operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cove_org_compensations_total",
				Help: "Total number of authorizer compensations executed after partial failures",
			},
			[]string{"operation"},
		),
		MembersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cove_org_members_total",
				Help: "Total number of organization memberships",
			},
		),
		OrganizationsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cove_organizations_total",
				Help: "Total number of organizations",
			},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cove_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"action", "allowed"},
		),
		PermissionCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cove_permission_cache_hits_total",
				Help: "Total number of permission cache hits",
			},
		),
		PermissionCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cove_permission_cache_misses_total",
				Help: "Total number of permission cache misses",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cove_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cove_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.CompensationsTotal,
		m.MembersTotal,
		m.OrganizationsTotal,
		m.PermissionChecksTotal,
		m.PermissionCacheHits,
		m.PermissionCacheMisses,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation records an operation outcome. outcome is "ok" or the error code.
func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}
