package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator generates predictable IDs: "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden trace comparison.
// Two runs of the same scenario assign identical IDs.
//
// Thread-safety: SequenceIDGenerator is safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator for the given prefix.
// If prefix is empty, "id" is used.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next ID in sequence.
//
// Implements registry.IDGenerator interface.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
