// Package metrics exposes the platform's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betline_bets_placed_total",
		Help: "Bets accepted by the betting engine.",
	})

	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betline_bets_settled_total",
		Help: "Bets resolved, by terminal status.",
	}, []string{"status"})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betline_payments_total",
		Help: "Payment transactions processed, by type and status.",
	}, []string{"type", "status"})
)

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
