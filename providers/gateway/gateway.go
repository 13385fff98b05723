// Package gateway holds the card-processing boundary. The core only ever sees
// the CardGateway and CheckoutClient interfaces; the concrete processor lives
// behind them.
package gateway

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// ErrDeclined is returned when the processor refuses the charge or payout.
var ErrDeclined = errors.New("gateway declined the request")

// CardGateway processes card charges and payouts against an external
// processor. Both return the processor's reference for the ledger.
type CardGateway interface {
	Charge(methodRef string, amount float64) (string, error)
	Payout(methodRef string, amount float64) (string, error)
}

// SimulatedGateway stands in for a real processor: it approves a configurable
// fraction of requests and declines the rest. Production deployments replace
// it with a real adapter behind the same interface.
type SimulatedGateway struct {
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedGateway(successRate float64, seed int64) *SimulatedGateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedGateway{
		successRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (g *SimulatedGateway) roll() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.successRate
}

func (g *SimulatedGateway) Charge(methodRef string, amount float64) (string, error) {
	if !g.roll() {
		return "", ErrDeclined
	}
	return "sim_ch_" + uuid.New().String(), nil
}

func (g *SimulatedGateway) Payout(methodRef string, amount float64) (string, error) {
	if !g.roll() {
		return "", ErrDeclined
	}
	return "sim_po_" + uuid.New().String(), nil
}
