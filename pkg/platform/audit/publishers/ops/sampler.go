package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler decides which operational events are kept. High-volume actions
// such as cache hits can be sampled down while the rest stay at the default.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
	random       func() float64
}

// NewSampler creates a sampler with the given default rate, clamped to
// 0.0 (keep nothing) through 1.0 (keep everything).
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clamp(defaultRate),
		rateByAction: make(map[string]float64),
		random:       rand.Float64,
	}
}

// ShouldSample reports whether an event for action should be kept.
func (s *Sampler) ShouldSample(action string) bool {
	rate := s.rateFor(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.random() < rate
}

// SetRate overrides the rate for one action.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

func (s *Sampler) SetDefaultRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultRate = clamp(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
