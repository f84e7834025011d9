package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/clubhub"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session lifecycle metrics
	SessionsIssuedTotal      metric.Int64Counter
	SessionsValidatedTotal   metric.Int64Counter
	SessionsRenewedTotal     metric.Int64Counter
	SessionsExpiredTotal     metric.Int64Counter
	SessionsInvalidatedTotal metric.Int64Counter
	SessionValidateDuration  metric.Float64Histogram

	// Store metrics
	StorageErrorsTotal metric.Int64Counter

	// Authorization metrics
	AuthzDecisionsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments bind to whatever meter provider is global at first use; when telemetry is
// disabled that is the no-op provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = newMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// newMetrics creates all metric instruments on meter.
func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.SessionsIssuedTotal, _ = meter.Int64Counter(
		"clubhub.sessions.issued.total",
		metric.WithDescription("Total number of sessions issued"),
		metric.WithUnit("{session}"),
	)

	m.SessionsValidatedTotal, _ = meter.Int64Counter(
		"clubhub.sessions.validated.total",
		metric.WithDescription("Total number of session validations by outcome"),
		metric.WithUnit("{validation}"),
	)

	m.SessionsRenewedTotal, _ = meter.Int64Counter(
		"clubhub.sessions.renewed.total",
		metric.WithDescription("Total number of sessions whose expiry was extended"),
		metric.WithUnit("{session}"),
	)

	m.SessionsExpiredTotal, _ = meter.Int64Counter(
		"clubhub.sessions.expired.total",
		metric.WithDescription("Total number of expired sessions purged"),
		metric.WithUnit("{session}"),
	)

	m.SessionsInvalidatedTotal, _ = meter.Int64Counter(
		"clubhub.sessions.invalidated.total",
		metric.WithDescription("Total number of sessions explicitly invalidated"),
		metric.WithUnit("{session}"),
	)

	m.SessionValidateDuration, _ = meter.Float64Histogram(
		"clubhub.sessions.validate.duration",
		metric.WithDescription("Duration of session validation including store round trips"),
		metric.WithUnit("ms"),
	)

	m.StorageErrorsTotal, _ = meter.Int64Counter(
		"clubhub.store.errors.total",
		metric.WithDescription("Total number of session store failures by operation"),
		metric.WithUnit("{error}"),
	)

	m.AuthzDecisionsTotal, _ = meter.Int64Counter(
		"clubhub.authz.decisions.total",
		metric.WithDescription("Total number of authorization decisions by rule and outcome"),
		metric.WithUnit("{decision}"),
	)

	return m
}
