package peerdex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerdex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and outcome (ok, degraded, seed_not_found, invalid, not_ready, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peerdex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("peerdex: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("peerdex: register metric: %w", err)
	}
	return nil
}

// Status label values of peerdex_sdk_operations_total.
const (
	statusOK           = "ok"
	statusDegraded     = "degraded"
	statusSeedNotFound = "seed_not_found"
	statusInvalid      = "invalid"
	statusNotReady     = "not_ready"
	statusError        = "error"
)

// outcomeOf classifies a call so dashboards can tell caller mistakes and
// missing seeds apart from engine failures.
func outcomeOf(p Page, err error) string {
	switch {
	case err == nil && p.Degraded != "":
		return statusDegraded
	case err == nil:
		return statusOK
	case errors.Is(err, ErrCompanyNotFound):
		return statusSeedNotFound
	case errors.Is(err, ErrInvalidCompanyID),
		errors.Is(err, ErrInvalidPagination),
		errors.Is(err, ErrInvalidStrategy):
		return statusInvalid
	default:
		return statusError
	}
}

// observer logs SDK calls and records them in prometheus.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	if reg == nil {
		return &observer{logger: logger}, nil
	}
	m, err := newSDKMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, status string, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []any{"op", op, "status", status, "duration", dur}
	switch status {
	case statusError:
		o.logger.Warn("peerdex call failed", append(attrs, "error", err)...)
	case statusDegraded, statusNotReady:
		o.logger.Info("peerdex call degraded", attrs...)
	default:
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		o.logger.Debug("peerdex call completed", attrs...)
	}
}
