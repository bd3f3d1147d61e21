package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestMockClock_AdvanceFiresExpiredTimers(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	timer := clock.NewTimer(30 * time.Second)
	require.Equal(t, 1, clock.PendingTimers())

	clock.Advance(29 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}
	assert.Equal(t, 1, clock.PendingTimers())

	clock.Advance(time.Second)
	select {
	case got := <-timer.C():
		assert.Equal(t, start.Add(30*time.Second), got)
	default:
		t.Fatal("timer did not fire at deadline")
	}
	assert.Equal(t, 0, clock.PendingTimers())
	assert.Equal(t, start.Add(30*time.Second), clock.Now())
}

func TestMockClock_StoppedTimerNeverFires(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, clock.PendingTimers())

	clock.Advance(time.Minute)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestMockClock_AdvanceDropsDeadTimers(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))

	for i := 0; i < 100; i++ {
		clock.NewTimer(time.Second)
	}
	stopped := clock.NewTimer(time.Hour)
	stopped.Stop()
	later := clock.NewTimer(time.Hour)
	require.Equal(t, 102, clock.trackedTimers())

	clock.Advance(time.Second)
	assert.Equal(t, 1, clock.trackedTimers())
	assert.Equal(t, 1, clock.PendingTimers())

	clock.Advance(time.Hour)
	assert.Equal(t, 0, clock.trackedTimers())
	select {
	case <-later.C():
	default:
		t.Fatal("surviving timer did not fire")
	}
}
