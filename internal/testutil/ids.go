package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable run IDs for ledger tests.
//
// IDs have the form "<prefix>-0001", "<prefix>-0002", ... so rows inserted in
// order also sort in order, matching what UUIDv7 gives in production.
//
// Thread-safety: Generate is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements store.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
