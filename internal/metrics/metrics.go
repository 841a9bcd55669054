package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CyclesTotal counts completed monitoring cycles by domain and outcome
	// (ok, fetch_error, store_error).
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subwatch_cycles_total",
			Help: "Total number of monitoring cycles by domain and outcome",
		},
		[]string{"domain", "outcome"},
	)

	// NewHostnamesTotal counts newly observed hostnames by domain.
	NewHostnamesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subwatch_new_hostnames_total",
			Help: "Total number of newly observed hostnames by domain",
		},
		[]string{"domain"},
	)

	// DeliveryFailuresTotal counts failed notification deliveries by sink.
	DeliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subwatch_delivery_failures_total",
			Help: "Total number of failed notification deliveries by sink",
		},
		[]string{"sink"},
	)

	// CycleDuration tracks one domain cycle's duration in seconds.
	CycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subwatch_cycle_duration_seconds",
			Help:    "Duration of one fetch-diff-persist-notify cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	// MonitoredDomains is the current size of the monitored domain list.
	MonitoredDomains = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subwatch_monitored_domains",
			Help: "Number of domains currently monitored",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		NewHostnamesTotal,
		DeliveryFailuresTotal,
		CycleDuration,
		MonitoredDomains,
	)
}

// RecordCycle records one finished cycle for a domain.
func RecordCycle(domainName, outcome string, seconds float64) {
	CyclesTotal.WithLabelValues(domainName, outcome).Inc()
	CycleDuration.WithLabelValues(domainName).Observe(seconds)
}

// AddNewHostnames records newly observed hostnames for a domain.
func AddNewHostnames(domainName string, n int) {
	NewHostnamesTotal.WithLabelValues(domainName).Add(float64(n))
}

// IncDeliveryFailure records one failed delivery for a sink.
func IncDeliveryFailure(sink string) {
	DeliveryFailuresTotal.WithLabelValues(sink).Inc()
}

// SetMonitoredDomains updates the monitored-domain gauge.
func SetMonitoredDomains(n int) {
	MonitoredDomains.Set(float64(n))
}
