package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out identifiers that are unique for the life of the store.
type Generator interface {
	New() string
}

// ULID generates prefixed, lexically sortable ids. Monotonic entropy keeps
// ids unique and ordered even when many are created in the same millisecond.
type ULID struct {
	prefix  string
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULID(prefix string) *ULID {
	return &ULID{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (g *ULID) New() string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	if g.prefix == "" {
		return id.String()
	}
	return g.prefix + "_" + id.String()
}
