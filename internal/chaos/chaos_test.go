package chaos

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInjector_Extremes(t *testing.T) {
	never := NewInjector(Config{})
	always := NewInjector(Config{AbortProbability: 1, ChurnProbability: 1})

	for i := 0; i < 1000; i++ {
		assert.False(t, never.ShouldAbort())
		assert.False(t, never.ShouldChurn())
		assert.True(t, always.ShouldAbort())
		assert.True(t, always.ShouldChurn())
	}
}

func TestInjector_ProbabilityIsRoughlyHonoured(t *testing.T) {
	inj := NewInjectorWithSource(Config{AbortProbability: 0.3, ChurnProbability: 0.05}, rand.NewSource(42))

	const n = 20000
	var aborts, churns int
	for i := 0; i < n; i++ {
		if inj.ShouldAbort() {
			aborts++
		}
		if inj.ShouldChurn() {
			churns++
		}
	}

	assert.InDelta(t, 0.3, float64(aborts)/n, 0.02)
	assert.InDelta(t, 0.05, float64(churns)/n, 0.01)
}

func TestInjector_AbortDelayShorterThanTimeout(t *testing.T) {
	inj := NewInjector(Config{AbortProbability: 1})

	for i := 0; i < 500; i++ {
		d := inj.AbortDelay(8 * time.Second)
		assert.GreaterOrEqual(t, d, AbortDelayMin)
		assert.LessOrEqual(t, d, AbortDelayMax)
	}

	// a timeout below the delay window still aborts first
	for i := 0; i < 100; i++ {
		assert.Less(t, inj.AbortDelay(20*time.Millisecond), 20*time.Millisecond)
	}
}

func TestInjector_ChurnBackoffAndJitterBounds(t *testing.T) {
	inj := NewInjector(Config{JitterMax: 40 * time.Millisecond})

	for i := 0; i < 500; i++ {
		b := inj.ChurnBackoff()
		assert.GreaterOrEqual(t, b, ChurnBackoffMin)
		assert.LessOrEqual(t, b, ChurnBackoffMax)

		j := inj.Jitter()
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 40*time.Millisecond)
	}

	assert.Zero(t, NewInjector(Config{}).Jitter())
}

func TestInjector_ConcurrentUse(t *testing.T) {
	inj := NewInjector(Config{AbortProbability: 0.5, ChurnProbability: 0.5, JitterMax: time.Millisecond})

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				inj.ShouldAbort()
				inj.ShouldChurn()
				inj.Jitter()
				inj.ChurnBackoff()
			}
		}()
	}
	wg.Wait()
}
