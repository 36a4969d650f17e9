package bot

import (
	"math/rand/v2"
	"sync"
)

// RandomChooser picks uniformly at random. It is safe for concurrent use.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser returns a chooser with a fixed seed, for tests.
func NewRandomChooser(seed uint64) *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSystemChooser returns a chooser seeded from the runtime source.
func NewSystemChooser() *RandomChooser {
	return NewRandomChooser(rand.Uint64())
}

// Choose returns a random element, or "" for an empty slice.
func (c *RandomChooser) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	c.mu.Lock()
	i := c.rng.IntN(len(options))
	c.mu.Unlock()
	return options[i]
}
