package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

func newTestGuard(interval time.Duration) (*Guard, *time.Time) {
	g := NewGuard(interval)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestTryAcquire_Cooldown(t *testing.T) {
	g, now := newTestGuard(10 * time.Second)

	release, ok := g.TryAcquire("s1", trade.Short)
	require.True(t, ok)
	release()

	_, ok = g.TryAcquire("s1", trade.Short)
	assert.False(t, ok, "cooling down")
	assert.Equal(t, 10*time.Second, g.Remaining("s1", trade.Short))

	_, ok = g.TryAcquire("s1", trade.Long)
	assert.True(t, ok, "other direction is independent")

	*now = now.Add(10 * time.Second)
	_, ok = g.TryAcquire("s1", trade.Short)
	assert.True(t, ok)
}

func TestTryAcquire_InFlight(t *testing.T) {
	g, now := newTestGuard(0)

	release, ok := g.TryAcquire("s1", trade.Long)
	require.True(t, ok)
	_, ok = g.TryAcquire("s1", trade.Long)
	assert.False(t, ok, "in flight")

	release()
	release()
	*now = now.Add(time.Millisecond)
	_, ok = g.TryAcquire("s1", trade.Long)
	assert.True(t, ok)
}

func TestTryAcquire_Concurrent(t *testing.T) {
	g := NewGuard(time.Minute)
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, ok := g.TryAcquire("s1", trade.Short); ok {
				atomic.AddInt32(&wins, 1)
				release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestForget(t *testing.T) {
	g, _ := newTestGuard(time.Minute)
	_, ok := g.TryAcquire("s1", trade.Short)
	require.True(t, ok)
	g.Forget("s1")
	_, ok = g.TryAcquire("s1", trade.Short)
	assert.True(t, ok)
	assert.Equal(t, "s1|SHORT", Key("s1", trade.Short))
}
