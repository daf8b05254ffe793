package fractional

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	fractionalize   *prometheus.CounterVec
	unfractionalize *prometheus.CounterVec
	replies         *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		fractionalize: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractional_fractionalize_total",
			Help: "Fractionalize requests handled, by result.",
		}, []string{"result"}),
		unfractionalize: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractional_unfractionalize_total",
			Help: "Unfractionalize requests handled, by result.",
		}, []string{"result"}),
		replies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractional_replies_total",
			Help: "Token creation replies handled, by result.",
		}, []string{"result"}),
	}
}
