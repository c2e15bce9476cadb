package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Supervisor holds the metrics of one supervisor invocation. It uses its
// own registry because the supervisor is a one-shot command: metrics are
// written to a node-exporter textfile on exit rather than scraped.
type Supervisor struct {
	registry *prometheus.Registry

	// Actions counts mutations by kind (rewrite_port, start_service, ...)
	Actions *prometheus.CounterVec

	// ProcessAlive is the last observed liveness per process (1 = alive)
	ProcessAlive *prometheus.GaugeVec

	// LastRunSuccess is 1 when the node converged or was already converged
	LastRunSuccess prometheus.Gauge

	// LastRunTimestamp is the unix time the run finished
	LastRunTimestamp prometheus.Gauge

	// RunDuration is the wall time of the run
	RunDuration prometheus.Histogram
}

// NewSupervisor creates and registers the supervisor metrics
func NewSupervisor() *Supervisor {
	m := &Supervisor{
		registry: prometheus.NewRegistry(),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burrow_supervisor_actions_total",
				Help: "Mutations performed by the supervisor by action",
			},
			[]string{"action"},
		),
		ProcessAlive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "burrow_supervisor_process_alive",
				Help: "Whether the process was alive at the last observation (1 = alive)",
			},
			[]string{"process"},
		),
		LastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "burrow_supervisor_last_run_success",
				Help: "Whether the last supervisor run converged (1 = success)",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "burrow_supervisor_last_run_timestamp_seconds",
				Help: "Unix time the last supervisor run finished",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "burrow_supervisor_run_duration_seconds",
				Help:    "Supervisor run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}

	m.registry.MustRegister(
		m.Actions,
		m.ProcessAlive,
		m.LastRunSuccess,
		m.LastRunTimestamp,
		m.RunDuration,
	)
	return m
}

// Action records one mutation. Safe on a nil receiver.
func (m *Supervisor) Action(action string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(action).Inc()
}

// Observed records the liveness of a process. Safe on a nil receiver.
func (m *Supervisor) Observed(process string, alive bool) {
	if m == nil {
		return
	}
	v := 0.0
	if alive {
		v = 1
	}
	m.ProcessAlive.WithLabelValues(process).Set(v)
}

// Finish records the outcome of the run. Safe on a nil receiver.
func (m *Supervisor) Finish(timer *Timer, success bool) {
	if m == nil {
		return
	}
	timer.ObserveDuration(m.RunDuration)
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes the metrics in the text exposition format for the
// node-exporter textfile collector. The file is replaced atomically.
func (m *Supervisor) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds in histogram
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(t.Duration().Seconds())
}
