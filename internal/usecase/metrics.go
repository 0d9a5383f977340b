package usecase

import (
	domain "github.com/vmandke/vending-machine/internal/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	machineTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machine_transactions_total",
			Help: "Machine engine transactions by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	tillValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "machine_till_value",
			Help: "Current value of the machine till in minor units",
		},
	)
)

func observeTxn(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	machineTransactions.WithLabelValues(op, outcome).Inc()
}

func observeTill(till domain.Coins) {
	tillValue.Set(float64(till.Total()))
}
