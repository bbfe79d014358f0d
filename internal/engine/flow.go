package engine

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator produces the identifier attached to each run's Report
// and used as the key for recorded traces.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 run IDs. They sort by creation time, so
// recorded runs list in the order they were started. The zero value is
// ready to use from any goroutine.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a scripted list of run IDs, one per Generate.
// Running out is a test bug and panics.
type FixedGenerator struct {
	mu        sync.Mutex
	remaining []string
}

// NewFixedGenerator returns a generator yielding ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{remaining: slices.Clone(ids)}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.remaining) == 0 {
		panic("engine: FixedGenerator has no run IDs left")
	}
	id := g.remaining[0]
	g.remaining = g.remaining[1:]
	return id
}
