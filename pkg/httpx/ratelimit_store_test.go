package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterStoreEvictsIdleBuckets(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := newLimiterStore(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})
	s.now = func() time.Time { return now }
	s.lastSweep = now

	a := s.get("a")
	s.get("b")
	require.Equal(t, 2, s.size())
	require.Same(t, a, s.get("a"))

	now = now.Add(minIdleTTL - time.Second)
	s.get("a")

	// "b" has been idle for the whole TTL, "a" was touched a second ago.
	now = now.Add(2 * time.Second)
	s.get("c")
	require.Equal(t, 2, s.size())
	require.Same(t, a, s.get("a"))
}

func TestRefillTimeBoundsIdleTTL(t *testing.T) {
	slow := newLimiterStore(RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 10})
	require.Equal(t, 10*time.Hour, slow.idleTTL)

	fast := newLimiterStore(RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100})
	require.Equal(t, minIdleTTL, fast.idleTTL)
}
