package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAttemptLimiter(t *testing.T) {
	now := testEpoch
	l := NewAttemptLimiter(5, 5*time.Minute)

	for i := range 5 {
		require.True(t, l.Allow("a", now), "attempt %d", i+1)
	}
	require.False(t, l.Allow("a", now))
	require.True(t, l.Allow("b", now), "keys are independent")

	// One attempt refills per minute.
	require.True(t, l.Allow("a", now.Add(time.Minute)))
	require.False(t, l.Allow("a", now.Add(time.Minute)))

	l.Reset("a")
	require.True(t, l.Allow("a", now.Add(time.Minute)))
}

func TestAttemptLimiterDisabled(t *testing.T) {
	var nilLimiter *AttemptLimiter
	require.True(t, nilLimiter.Allow("a", testEpoch))
	nilLimiter.Reset("a")

	off := NewAttemptLimiter(0, time.Minute)
	for range 100 {
		require.True(t, off.Allow("a", testEpoch))
	}
}

func TestAttemptLimiterSweep(t *testing.T) {
	l := NewAttemptLimiter(2, time.Minute)
	require.True(t, l.Allow("stale", testEpoch))

	later := testEpoch.Add(time.Hour)
	for i := range limiterSweepEvery {
		l.Allow("k"+string(rune('a'+i%26)), later)
	}

	l.mu.Lock()
	_, ok := l.limiters["stale"]
	l.mu.Unlock()
	require.False(t, ok)
}
