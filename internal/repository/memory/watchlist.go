package memory

import (
	"context"
	"slices"
	"sync"
)

// WatchlistStore - watchlist в памяти процесса (dev и тесты)
type WatchlistStore struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{data: make(map[string][]string)}
}

func (s *WatchlistStore) Load(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data[userID]), nil
}

func (s *WatchlistStore) Save(ctx context.Context, userID string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = slices.Clone(ids)
	return nil
}
