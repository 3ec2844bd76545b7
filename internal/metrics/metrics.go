package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface the identity core records against.
// The prometheus implementation and the noop implementation both satisfy it,
// so callers never branch on whether metrics are enabled.
type Recorder interface {
	// Identity resolution
	RecordUIDMinted()
	RecordUnseal(result string) // "valid", "invalid", "absent"
	RecordCookieResealed()

	// Device/session binding
	RecordInstallRegistered(success bool)
	RecordSessionStarted(success bool)
	RecordSessionRevoked(result string) // "revoked", "already_revoked", "error"
	RecordBindingLookup(hit bool)

	// Gauge setters (periodic updates)
	SetActiveSessionsCount(count int)
	SetInstallsCount(count int)
	SetUserDevicesCount(count int)

	// Infrastructure
	RecordDatabaseQueryError(operation string)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the identity core
type Metrics struct {
	// Identity resolution
	UIDsMintedTotal    prometheus.Counter
	UnsealTotal        *prometheus.CounterVec
	CookieResealsTotal prometheus.Counter

	// Device/session binding
	InstallsRegisteredTotal *prometheus.CounterVec
	SessionsStartedTotal    *prometheus.CounterVec
	SessionsRevokedTotal    *prometheus.CounterVec
	BindingLookupsTotal     *prometheus.CounterVec

	// Gauges
	SessionsActive   prometheus.Gauge
	InstallsTotal    prometheus.Gauge
	UserDevicesTotal prometheus.Gauge

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=true, returns Prometheus-based Metrics.
// If enabled=false, returns NoopMetrics (zero overhead).
// Uses sync.Once to ensure Prometheus metrics are only registered once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		UIDsMintedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_uids_minted_total",
				Help: "Total number of fresh pseudonymous identifiers minted",
			},
		),
		UnsealTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_unseal_total",
				Help: "Total number of sealed cookie verifications",
			},
			[]string{"result"}, // valid, invalid, absent
		),
		CookieResealsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "identity_cookie_reseals_total",
				Help: "Total number of cookies re-sealed after a key rotation",
			},
		),
		InstallsRegisteredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_installs_registered_total",
				Help: "Total number of device install registrations",
			},
			[]string{"result"}, // success, error
		),
		SessionsStartedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_sessions_started_total",
				Help: "Total number of sessions started",
			},
			[]string{"result"}, // success, error
		),
		SessionsRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_sessions_revoked_total",
				Help: "Total number of session revocations",
			},
			[]string{"result"}, // revoked, already_revoked, error
		),
		BindingLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_binding_lookups_total",
				Help: "User-device binding lookups by cache outcome",
			},
			[]string{"outcome"}, // hit, miss
		),
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_sessions_active",
				Help: "Current number of unrevoked sessions",
			},
		),
		InstallsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_installs",
				Help: "Current number of registered device installs",
			},
		),
		UserDevicesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "identity_user_devices",
				Help: "Current number of user-device bindings",
			},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}
}

const (
	resultSuccess = "success"
	resultError   = "error"
)

// RecordUIDMinted records a fresh identifier mint.
func (m *Metrics) RecordUIDMinted() {
	m.UIDsMintedTotal.Inc()
}

// RecordUnseal records the outcome of a sealed cookie verification.
func (m *Metrics) RecordUnseal(result string) {
	m.UnsealTotal.WithLabelValues(result).Inc()
}

// RecordCookieResealed records a cookie re-signed after key rotation.
func (m *Metrics) RecordCookieResealed() {
	m.CookieResealsTotal.Inc()
}

// RecordInstallRegistered records a device registration attempt.
func (m *Metrics) RecordInstallRegistered(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.InstallsRegisteredTotal.WithLabelValues(result).Inc()
}

// RecordSessionStarted records a session start attempt.
func (m *Metrics) RecordSessionStarted(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.SessionsStartedTotal.WithLabelValues(result).Inc()
	if success {
		m.SessionsActive.Inc()
	}
}

// RecordSessionRevoked records a session revocation outcome.
func (m *Metrics) RecordSessionRevoked(result string) {
	m.SessionsRevokedTotal.WithLabelValues(result).Inc()
	if result == "revoked" {
		m.SessionsActive.Dec()
	}
}

// RecordBindingLookup records a user-device binding lookup cache outcome.
func (m *Metrics) RecordBindingLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.BindingLookupsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveSessionsCount sets the current count of unrevoked sessions.
func (m *Metrics) SetActiveSessionsCount(count int) {
	m.SessionsActive.Set(float64(count))
}

// SetInstallsCount sets the current count of registered installs.
func (m *Metrics) SetInstallsCount(count int) {
	m.InstallsTotal.Set(float64(count))
}

// SetUserDevicesCount sets the current count of user-device bindings.
func (m *Metrics) SetUserDevicesCount(count int) {
	m.UserDevicesTotal.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection.
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
