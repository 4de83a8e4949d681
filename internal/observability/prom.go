package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec

	// Auth outcomes by operation (login, signup, reset...) and result.
	AuthTotal *prometheus.CounterVec

	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bookstore",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		AuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Subsystem: "auth",
				Name:      "operations_total",
				Help:      "Auth operations by outcome.",
			},
			[]string{"op", "outcome"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bookstore",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			p.RequestsTotal,
			p.RequestsDuration,
			p.AuthTotal,
			p.DbQueryDuration,
			p.DbErrorsTotal,
		)
	}

	return p
}

func (p *Prom) CountAuth(op, outcome string) {
	if p == nil {
		return
	}

	p.AuthTotal.WithLabelValues(op, outcome).Inc()
}
