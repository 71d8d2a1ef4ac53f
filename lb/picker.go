package lb

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// InconsistentLengthError is returned by WeightedRoundRobin construction
// when the weights slice doesn't match the backend count it will be used
// against.
type InconsistentLengthError struct {
	Backends int
	Weights  int
}

func (e *InconsistentLengthError) Error() string {
	return fmt.Sprintf("lb: inconsistent length: %d backends, %d weights", e.Backends, e.Weights)
}

// Picker selects a backend index in [0, n) for each request. Pickers carry
// mutable cursor/PRNG state; each implementation in this package guards it
// with its own mutex, so the Lb handler calls Pick without further locking.
type Picker interface {
	Pick(n int) (int, error)
}

// RoundRobin returns 0, 1, ..., n-1, 0, 1, ... across successive calls,
// retaining the last-returned index across calls via an atomic-style
// counter guarded by a mutex.
type RoundRobin struct {
	mu   sync.Mutex
	last int
	init bool
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("lb: no backends to pick from")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.init {
		r.init = true
		r.last = 0
		return r.last, nil
	}
	r.last = (r.last + 1) % n
	return r.last, nil
}

// Random returns a uniformly sampled index from a seeded PRNG
// (math/rand/v2's PCG, seeded at construction so results are reproducible
// for a given seed pair).
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed1, seed2 uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (r *Random) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("lb: no backends to pick from")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n), nil
}

// WeightedRoundRobin returns index i exactly weights[i] consecutive times,
// then advances to i+1 mod len(weights).
type WeightedRoundRobin struct {
	mu      sync.Mutex
	weights []int
	idx     int
	used    int
}

// NewWeightedRoundRobin validates that weights has exactly backendCount
// entries before constructing the picker.
func NewWeightedRoundRobin(weights []int, backendCount int) (*WeightedRoundRobin, error) {
	if len(weights) != backendCount {
		return nil, &InconsistentLengthError{Backends: backendCount, Weights: len(weights)}
	}
	w := make([]int, len(weights))
	copy(w, weights)
	return &WeightedRoundRobin{weights: w}, nil
}

func (w *WeightedRoundRobin) Pick(n int) (int, error) {
	if n <= 0 || n != len(w.weights) {
		return 0, &InconsistentLengthError{Backends: n, Weights: len(w.weights)}
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.weights[w.idx] <= 0 {
		w.idx = (w.idx + 1) % len(w.weights)
	}

	i := w.idx
	w.used++
	if w.used >= w.weights[w.idx] {
		w.used = 0
		w.idx = (w.idx + 1) % len(w.weights)
	}
	return i, nil
}
