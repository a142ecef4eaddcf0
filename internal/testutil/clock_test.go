package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_AdvanceMovesForward(t *testing.T) {
	clock := NewFakeClock()

	got := clock.Advance(time.Hour)
	assert.Equal(t, Epoch.Add(time.Hour), got)
	assert.Equal(t, got, clock.Now())

	// Negative durations are ignored
	clock.Advance(-time.Minute)
	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())
}

func TestFakeClock_Reset(t *testing.T) {
	clock := NewFakeClockAt(Epoch.Add(-time.Hour))
	clock.Advance(3 * time.Hour)

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock()
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	require.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}

func TestSequenceIDGenerator_Sequence(t *testing.T) {
	gen := NewSequenceIDGenerator("dev")

	assert.Equal(t, "dev-0001", gen.Generate())
	assert.Equal(t, "dev-0002", gen.Generate())
	assert.Equal(t, "dev-0003", gen.Generate())
}

func TestSequenceIDGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequenceIDGenerator("")
	assert.Equal(t, "id-0001", gen.Generate())
}

func TestSequenceIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceIDGenerator("x")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every generated ID is unique")
}
