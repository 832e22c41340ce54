package randsrc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64(), "draw %d", i)
	}
}

func TestForStream_Independent(t *testing.T) {
	s0 := ForStream(7, 0)
	s1 := ForStream(7, 1)
	again := ForStream(7, 1)

	same := 0
	for i := 0; i < 50; i++ {
		v0, v1, v1b := s0.Float64(), s1.Float64(), again.Float64()
		if v0 == v1 {
			same++
		}
		assert.Equal(t, v1, v1b)
		assert.GreaterOrEqual(t, v0, 0.0)
		assert.Less(t, v0, 1.0)
	}
	assert.Less(t, same, 50, "streams should differ")
}

func TestSequence_Cycles(t *testing.T) {
	s := NewSequence(0.1, 0.9)

	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.9, s.Float64())
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 3, s.Calls())

	assert.Equal(t, 0.0, NewSequence().Float64())
}

func TestLocked_ConcurrentAccess(t *testing.T) {
	seq := NewSequence(0.5)
	l := NewLocked(seq)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Float64()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, seq.Calls())
}
