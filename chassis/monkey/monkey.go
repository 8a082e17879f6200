package monkey

import (
	"math/rand"
	"sync"
	"time"
)

// Monkey injects failures with a fixed probability.
type Monkey struct {
	chance float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Monkey striking with the given chance, 0 disables it.
func New(chance float64) *Monkey {
	return NewWithSeed(chance, time.Now().UnixNano())
}

// NewWithSeed ...
func NewWithSeed(chance float64, seed int64) *Monkey {
	return &Monkey{
		chance: chance,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// Strike reports whether a failure should be injected now.
func (m *Monkey) Strike() bool {
	if m == nil || m.chance <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rnd.Float64() < m.chance
}

// Corrupt with some probability truncates body so it no longer decodes.
func (m *Monkey) Corrupt(body []byte) ([]byte, bool) {
	if !m.Strike() {
		return body, false
	}
	if len(body) < 2 {
		return []byte("{"), true
	}
	return body[:len(body)/2], true
}
