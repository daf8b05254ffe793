package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	transactions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_transactions_total",
			Help: "Transactions executed by the host, by final state.",
		}, []string{"state"}),
	}
}
