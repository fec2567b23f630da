package agent

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report agent activity.
type Metrics struct {
	pollsTotal     prometheus.Counter
	runsSubmitted  prometheus.Counter
	runsFailed     prometheus.Counter
	submitting     prometheus.Gauge
	deployDuration *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once so
// that constructing several agents does not panic on duplicate registration.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Pass a fresh registry when unique metric names are required, for example in
// tests. Registration errors panic, mirroring promauto semantics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowagent",
			Name:      "polls_total",
			Help:      "Number of discovery poll cycles executed.",
		}),
		runsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowagent",
			Name:      "flow_runs_submitted_total",
			Help:      "Flow runs successfully handed to a deployment backend.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowagent",
			Name:      "flow_runs_failed_total",
			Help:      "Flow runs whose deployment failed and was marked Failed.",
		}),
		submitting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowagent",
			Name:      "flow_runs_submitting",
			Help:      "Flow runs currently between discovery and dispatch completion.",
		}),
		deployDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowagent",
			Name:      "deploy_duration_seconds",
			Help:      "Duration of deployment backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{
		m.pollsTotal, m.runsSubmitted, m.runsFailed, m.submitting, m.deployDuration,
	} {
		if err := reg.Register(c); err != nil {
			panic(err)
		}
	}
	return m
}
