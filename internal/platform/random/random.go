// Package random wraps an injectable math/rand/v2 generator so services can
// share it across goroutines and tests can seed it.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source is a goroutine-safe *rand.Rand.
type Source struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New wraps r. A nil r is replaced by a generator seeded from the runtime.
func New(r *rand.Rand) *Source {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Source{r: r}
}

// Seeded returns a deterministic Source.
func Seeded(seed uint64) *Source {
	return New(rand.New(rand.NewPCG(seed, seed)))
}

// Shuffle permutes s in place.
func Shuffle[T any](src *Source, s []T) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
