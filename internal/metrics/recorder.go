// Package metrics records per-run login statistics and pushes them to a
// Prometheus Pushgateway, which is how short-lived batch jobs report.
package metrics

import (
	"context"
	"fmt"
	"time"

	"panelkeeper/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "panelkeeper"

// Recorder holds the metrics of one run on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	outcomes        *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec
	runDuration     prometheus.Gauge
	lastCompletion  prometheus.Gauge
	accountsChecked prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_outcomes_total",
			Help:      "Login attempts by outcome (success, auth_failure, error).",
		}, []string{"outcome"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Notification deliveries that failed, by sink.",
		}, []string{"sink"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		lastCompletion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_completion_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		accountsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_checked_total",
			Help:      "Accounts processed in this run.",
		}),
	}
	r.registry.MustRegister(r.outcomes, r.notifyFailures, r.runDuration, r.lastCompletion, r.accountsChecked)
	// Pre-create the label values so a run with no errors still reports 0.
	for _, k := range []domain.OutcomeKind{domain.OutcomeSuccess, domain.OutcomeAuthFailure, domain.OutcomeError} {
		r.outcomes.WithLabelValues(k.String())
	}
	return r
}

func (r *Recorder) ObserveOutcome(o domain.Outcome) {
	if r == nil {
		return
	}
	r.accountsChecked.Inc()
	r.outcomes.WithLabelValues(o.Kind.String()).Inc()
}

func (r *Recorder) ObserveNotifyFailure(sink string) {
	if r == nil {
		return
	}
	r.notifyFailures.WithLabelValues(sink).Inc()
}

// ObserveRun records the run's duration and completion time.
func (r *Recorder) ObserveRun(started, finished time.Time) {
	if r == nil {
		return
	}
	r.runDuration.Set(finished.Sub(started).Seconds())
	r.lastCompletion.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Push replaces the job's metric group on the Pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
