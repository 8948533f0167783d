package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	CreditDenials   prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wingman",
				Name:      "http_requests_total",
				Help:      "Total API requests by endpoint",
			}, []string{"endpoint"}),
			ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wingman",
				Name:      "provider_calls_total",
				Help:      "Total LLM provider calls by provider and outcome",
			}, []string{"provider", "outcome"}),
			ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wingman",
				Name:      "provider_call_seconds",
				Help:      "LLM provider call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			}, []string{"provider"}),
			CreditDenials: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "wingman",
				Name:      "credit_denials_total",
				Help:      "Total requests rejected for exhausted credits",
			}),
		}
		prometheus.MustRegister(global.RequestsTotal, global.ProviderCalls, global.ProviderLatency, global.CreditDenials)
	})
	return global
}
