// Package codegen produces short, human-enterable activation codes.
package codegen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// Generator draws random codes from fleet.CodeAlphabet.
//
// Generate has no side effects beyond consuming randomness. Uniqueness
// against live codes is enforced by the caller, which re-rolls on
// collision (see registry.CreateActivation).
//
// Thread-safety: Generator is safe for concurrent use as long as its
// random source is (crypto/rand.Reader is).
type Generator struct {
	length int
	rand   io.Reader
}

// New creates a generator for codes of the given length.
// Returns an error if length is outside [fleet.MinCodeLength, fleet.MaxCodeLength].
func New(length int) (*Generator, error) {
	return NewWithSource(length, rand.Reader)
}

// NewWithSource creates a generator reading randomness from src.
// Tests use a deterministic source to force collisions.
func NewWithSource(length int, src io.Reader) (*Generator, error) {
	if length < fleet.MinCodeLength || length > fleet.MaxCodeLength {
		return nil, fmt.Errorf("code length %d out of range [%d, %d]",
			length, fleet.MinCodeLength, fleet.MaxCodeLength)
	}
	return &Generator{length: length, rand: src}, nil
}

// Length returns the number of characters in generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new random code.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(fleet.CodeAlphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = fleet.CodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
