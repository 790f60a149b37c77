package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaService_FreeCeiling(t *testing.T) {
	clock := newFakeClock()
	q := NewQuotaService(3, 24*time.Hour, clock.Now)

	got := []bool{q.Allow("1.1.1.1"), q.Allow("1.1.1.1"), q.Allow("1.1.1.1"), q.Allow("1.1.1.1")}
	assert.Equal(t, []bool{true, true, true, false}, got)
	assert.Equal(t, 3, q.Used("1.1.1.1"), "denied calls are not counted")
	assert.True(t, q.Allow("2.2.2.2"), "counters are per client")
}

func TestQuotaService_GlobalResetRearmsEveryone(t *testing.T) {
	clock := newFakeClock()
	q := NewQuotaService(3, 24*time.Hour, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, q.Allow("a"))
	}
	assert.False(t, q.Allow("a"))

	clock.Advance(23 * time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, q.Allow("late"))
	}
	assert.False(t, q.Allow("late"))

	clock.Advance(24 * time.Hour)
	assert.True(t, q.Allow("a"))
	assert.Equal(t, 0, q.Used("late"), "the late client was cleared by the same reset")
	assert.True(t, q.Allow("late"))
}

func TestQuotaService_WindowBoundary(t *testing.T) {
	clock := newFakeClock()
	q := NewQuotaService(1, time.Hour, clock.Now)

	assert.True(t, q.Allow("a"))
	clock.Advance(time.Hour)
	assert.False(t, q.Allow("a"), "exactly one window later is still the same window")
	clock.Advance(time.Nanosecond)
	assert.True(t, q.Allow("a"))
}

func TestQuotaService_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	q := NewQuotaService(3, 24*time.Hour, nil)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Allow("same") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3), allowed.Load())
}

func TestQuotaService_ConcurrentResetClearsOnce(t *testing.T) {
	clock := newFakeClock()
	q := NewQuotaService(3, time.Hour, clock.Now).(*quotaService)

	q.Allow("a")
	clock.Advance(2 * time.Hour)
	marker := clock.Now().UnixNano()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Allow("b")
		}()
	}
	wg.Wait()

	assert.Equal(t, marker, q.lastReset.Load())
	assert.Equal(t, 3, q.Used("b"), "no second clear wiped counts taken after the reset")
	assert.Equal(t, 0, q.Used("a"))
}

func TestQuotaService_Defaults(t *testing.T) {
	q := NewQuotaService(0, 0, nil)
	assert.Equal(t, 3, q.Limit())
}
