package forecast

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler is the random source of the Poisson strategy.
type Sampler interface {
	// Poisson draws an event count with mean lambda.
	Poisson(lambda float64) int
	// Exponential draws an inter-arrival time for the given rate.
	Exponential(rate float64) float64
}

// distSampler draws from gonum distributions. The PCG source is not safe for
// concurrent use, so draws are serialized.
type distSampler struct {
	mu  sync.Mutex
	src rand.Source
}

// NewSampler returns a Sampler seeded with seed. A zero seed picks a random one.
func NewSampler(seed uint64) Sampler {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &distSampler{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (s *distSampler) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

func (s *distSampler) Exponential(rate float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return distuv.Exponential{Rate: rate, Src: s.src}.Rand()
}
