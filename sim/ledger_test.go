package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_PopOldest_FIFO(t *testing.T) {
	// GIVEN three waiting clients
	l := NewLedger()
	a := l.Add(1, 0.5)
	b := l.Add(2, 0.7)
	c := l.Add(1, 0.9)
	require.Equal(t, 3, l.Len())

	// WHEN they are served
	// THEN they leave oldest first with their class and arrival instant
	for _, want := range []Client{a, b, c} {
		got, ok := l.PopOldest()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := l.PopOldest()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_AddAfterDrain(t *testing.T) {
	l := NewLedger()
	first := l.Add(0, 1)
	_, _ = l.PopOldest()

	second := l.Add(3, 1.25)
	assert.Equal(t, 1, l.Len())
	got, ok := l.PopOldest()
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 3, got.Class)
	assert.Equal(t, 1.25, got.Since)
	assert.Greater(t, second.ID, first.ID)
}

func TestLedger_IDsAreUnique(t *testing.T) {
	l := NewLedger()
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		c := l.Add(0, float64(i))
		require.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}
