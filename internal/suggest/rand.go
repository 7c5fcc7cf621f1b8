package suggest

import (
	"math/rand/v2"
	"sync"
)

// Rand is the source of randomness for suggestions. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// lockedRand makes a *rand.Rand safe to share between the concurrent template and model paths.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // not used for security.
	}
	return &lockedRand{mu: sync.Mutex{}, rng: rng}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// pick returns a random element of items. items must not be empty.
func pick[T any](r Rand, items []T) T {
	return items[r.IntN(len(items))]
}
