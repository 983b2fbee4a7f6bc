package verification

import (
	"math/rand/v2"
	"time"

	"github.com/trust-ride/trust_ride/internal/chain"
)

const blockSpread = 1000

// Simulator stands in for an on-chain confirmation: it picks a settle delay
// and a success roll. It never talks to a real ledger.
type Simulator struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	SuccessRate float64
}

// DefaultSimulator settles in 2 to 5 seconds with a 95% success rate.
func DefaultSimulator() Simulator {
	return Simulator{MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second, SuccessRate: 0.95}
}

// Outcome is the settled result of a verification.
type Outcome struct {
	Verified    bool
	BlockNumber int64
}

// Delay returns a settle delay in [MinDelay, MaxDelay).
func (s Simulator) Delay() time.Duration {
	if s.MaxDelay <= s.MinDelay {
		return s.MinDelay
	}
	return s.MinDelay + time.Duration(rand.Int64N(int64(s.MaxDelay-s.MinDelay)))
}

// Resolve rolls the outcome. Verified outcomes carry a block number in
// [chain.BaseBlockNumber, chain.BaseBlockNumber+1000).
func (s Simulator) Resolve() Outcome {
	if rand.Float64() >= s.SuccessRate {
		return Outcome{}
	}
	return Outcome{Verified: true, BlockNumber: chain.BaseBlockNumber + rand.Int64N(blockSpread)}
}
