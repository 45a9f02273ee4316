package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MintsTotal        *prometheus.CounterVec
	UnitsIssuedTotal  prometheus.Counter
	SettlementsTotal  prometheus.Counter
	WithdrawalsTotal  prometheus.Counter
	EarmarkedBalance  prometheus.Gauge
	ContractBalance   prometheus.Gauge
	MintDuration      prometheus.Histogram
	RequestDuration   *prometheus.HistogramVec
	EventsPublished   prometheus.Counter
	EventPublishFails prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MintsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_mints_total",
			Help: "Completed mint operations, partitioned by path and oracle outcome.",
		}, []string{"path", "verified"}),
		UnitsIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_units_issued_total",
			Help: "Total units ever issued.",
		}),
		SettlementsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_settlements_total",
			Help: "Successful earmark settlements.",
		}),
		WithdrawalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_withdrawals_total",
			Help: "Successful administrator withdrawals.",
		}),
		EarmarkedBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mintgate_earmarked_balance",
			Help: "Current balance earmarked for the designated fund destination.",
		}),
		ContractBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mintgate_contract_balance",
			Help: "Current total balance held by the service.",
		}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mintgate_mint_duration_seconds",
			Help:    "End-to-end mint operation latency including the oracle call.",
			Buckets: prometheus.DefBuckets,
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mintgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_mint_events_published_total",
			Help: "Mint events successfully handed to the broker.",
		}),
		EventPublishFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_mint_event_publish_failures_total",
			Help: "Mint events dropped after a publish failure.",
		}),
	}
}

// ObserveBalances updates the balance gauges after a committed operation.
func (m *Metrics) ObserveBalances(contract, earmarked uint64) {
	m.ContractBalance.Set(float64(contract))
	m.EarmarkedBalance.Set(float64(earmarked))
}
