package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InitialViewIsEmpty(t *testing.T) {
	t.Parallel()

	c := NewCache()
	v := c.Load()
	require.NotNil(t, v)
	assert.True(t, v.Snapshot.Empty())
	assert.False(t, v.Stale())
	assert.Zero(t, v.Version)
}

func TestCache_ApplyReplacesSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCache()
	require.True(t, c.Apply(ctx, domain.Snapshot{Coins: []domain.Coin{coin("bitcoin", "Bitcoin", "BTC", 50000, 0, 1)}}))
	require.True(t, c.Apply(ctx, domain.Snapshot{Coins: []domain.Coin{coin("bitcoin", "Bitcoin", "BTC", 51000, 0, 1)}}))

	v := c.Load()
	assert.Equal(t, uint64(2), v.Version)
	assert.Equal(t, domain.Up, v.Direction("bitcoin"))
	assert.Equal(t, domain.Unchanged, v.Direction("unknown"))
}

func TestCache_MarkFailedKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCache()
	snap := domain.Snapshot{Coins: sampleCoins()}
	require.True(t, c.Apply(ctx, snap))

	boom := errors.New("boom")
	at := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, c.MarkFailed(ctx, boom, at))

	v := c.Load()
	assert.True(t, v.Stale())
	assert.Equal(t, at, v.FailedAt)
	assert.Len(t, v.Snapshot.Coins, len(snap.Coins))

	// следующий успешный цикл снимает флаг
	require.True(t, c.Apply(ctx, snap))
	assert.False(t, c.Load().Stale())
}

func TestCache_CancelledContextDiscardsResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCache()
	assert.False(t, c.Apply(ctx, domain.Snapshot{Coins: sampleCoins()}))
	assert.False(t, c.MarkFailed(ctx, errors.New("x"), time.Now()))
	assert.True(t, c.Load().Snapshot.Empty())
	assert.Empty(t, c.Memory())
}

// Читатели никогда не видят снимок вперемешку со старыми направлениями
func TestCache_ReadersSeeConsistentViews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCache()
	small := domain.Snapshot{Coins: sampleCoins()[:2]}
	big := domain.Snapshot{Coins: sampleCoins()}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := c.Load()
				if v.Version == 0 {
					continue
				}
				for _, cn := range v.Snapshot.Coins {
					if _, ok := v.Directions[cn.ID]; !ok {
						t.Errorf("version %d: no direction for %s", v.Version, cn.ID)
						return
					}
				}
			}
		}()
	}

	for i := range 200 {
		if i%2 == 0 {
			c.Apply(ctx, small)
		} else {
			c.Apply(ctx, big)
		}
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(200), c.Load().Version)
}
