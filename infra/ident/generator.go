// Package ident mints order and trade identifiers. Production uses
// crypto randomness; tests seed the generator so replays produce the
// same id stream.
package ident

import (
	"crypto/rand"
	"io"
	mrand "math/rand"
	"sync"

	"github.com/google/uuid"
)

// Generator produces UUID string ids from its own entropy source.
type Generator struct {
	mu  sync.Mutex
	src io.Reader
}

// New returns a generator backed by crypto/rand.
func New() *Generator {
	return &Generator{src: rand.Reader}
}

// NewSeeded returns a deterministic generator for tests and replays.
func NewSeeded(seed int64) *Generator {
	return &Generator{src: seededReader{r: mrand.New(mrand.NewSource(seed))}}
}

// NewID returns the next identifier.
func (g *Generator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		// crypto/rand never fails on supported platforms; a broken
		// entropy source is unrecoverable here.
		panic(err)
	}
	return u.String()
}

type seededReader struct {
	r *mrand.Rand
}

func (s seededReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(s.r.Intn(256))
	}
	return len(p), nil
}
