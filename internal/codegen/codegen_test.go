package codegen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kioskfleet/internal/fleet"
)

func TestNew_RejectsOutOfRangeLength(t *testing.T) {
	for _, n := range []int{0, 5, 9, 32} {
		_, err := New(n)
		assert.Error(t, err, "length %d", n)
	}
}

func TestGenerate_UsesAlphabetAndLength(t *testing.T) {
	for _, n := range []int{fleet.MinCodeLength, 7, fleet.MaxCodeLength} {
		g, err := New(n)
		require.NoError(t, err)
		assert.Equal(t, n, g.Length())

		for i := 0; i < 200; i++ {
			code, err := g.Generate()
			require.NoError(t, err)
			assert.Len(t, code, n)
			assert.True(t, fleet.ValidCode(code), "code %q", code)
			assert.Equal(t, code, fleet.NormalizeCode(code), "codes are already normalized")
		}
	}
}

func TestGenerate_DeterministicSource(t *testing.T) {
	// Identical byte streams yield identical codes.
	seed := bytes.Repeat([]byte{0x00}, 64)

	g1, err := NewWithSource(6, bytes.NewReader(seed))
	require.NoError(t, err)
	g2, err := NewWithSource(6, bytes.NewReader(seed))
	require.NoError(t, err)

	c1, err := g1.Generate()
	require.NoError(t, err)
	c2, err := g2.Generate()
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, "AAAAAA", c1)
}

func TestGenerate_ExhaustedSource(t *testing.T) {
	g, err := NewWithSource(6, bytes.NewReader(nil))
	require.NoError(t, err)

	_, err = g.Generate()
	assert.Error(t, err)
}
