package market

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"ltpbot/internal/types"
)

const (
	simStartPrice = 100.0
	simFloorPrice = 10.0
	simMaxStep    = 0.5
)

// Simulator is a bounded random walk used in simulated mode.
type Simulator struct {
	mu   sync.Mutex
	last float64
	rng  *rand.Rand
}

func NewSimulator() *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))}
}

// NewSimulatorWithSeed gives a reproducible walk.
func NewSimulatorWithSeed(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Fetch moves the walk by U(-0.5, 0.5) from the last level (100 when unset)
// and floors it at 10.
func (s *Simulator) Fetch(_ context.Context, _ int, _ types.Exchange) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.last
	if last <= 0 {
		last = simStartPrice
	}
	move := (s.rng.Float64()*2 - 1) * simMaxStep
	next := last + move
	if next < simFloorPrice {
		next = simFloorPrice
	}
	s.last = next
	return Quote{Price: next, At: time.Now()}, nil
}

// Quote returns the current level without moving it. Before the first Fetch
// it starts the walk.
func (s *Simulator) Quote(ctx context.Context, scripCode int, exch types.Exchange) (Quote, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last <= 0 {
		return s.Fetch(ctx, scripCode, exch)
	}
	return Quote{Price: last, At: time.Now()}, nil
}

// Seed sets the current level, e.g. to continue from a known price.
func (s *Simulator) Seed(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price > 0 {
		s.last = price
	}
}
