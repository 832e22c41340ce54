// Package randsrc provides the injectable uniform random source used by the simulators.
package randsrc

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform draws in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// New returns a PCG-backed source for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, splitmix64(0)))
}

// ForStream returns an independent source for the given stream index under seed.
// Path i of a batch (or cell k of a sweep) uses ForStream(seed, i), so results do not
// depend on how work is scheduled across goroutines.
func ForStream(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, splitmix64(stream+1)))
}

// ClockSeed derives a seed from the wall clock.
func ClockSeed() uint64 {
	return splitmix64(uint64(time.Now().UnixNano()))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Sequence replays a fixed list of draws, cycling when exhausted.
// Used to force wins (draw 0) or losses (draw close to 1) in tests.
type Sequence struct {
	draws []float64
	next  int
}

// NewSequence creates a Sequence. With no draws it always returns 0.
func NewSequence(draws ...float64) *Sequence {
	return &Sequence{draws: draws}
}

func (s *Sequence) Float64() float64 {
	if len(s.draws) == 0 {
		return 0
	}
	v := s.draws[s.next%len(s.draws)]
	s.next++
	return v
}

// Calls returns how many draws have been taken.
func (s *Sequence) Calls() int {
	return s.next
}

// Locked serializes access to a shared Source.
type Locked struct {
	mu  sync.Mutex
	src Source
}

// NewLocked wraps src with a mutex.
func NewLocked(src Source) *Locked {
	return &Locked{src: src}
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
