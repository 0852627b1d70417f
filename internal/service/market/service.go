package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
)

//go:generate mockgen -destination=mocks/mock_market.go -package=mocks . SnapshotProvider,Metrics

// SnapshotProvider - внешний источник котировок (CoinGecko API)
type SnapshotProvider interface {
	FetchSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// Metrics - то, что сервис сообщает наружу о своих обновлениях
type Metrics interface {
	ObserveFetch(d time.Duration, err error)
	SetSnapshotSize(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(time.Duration, error) {}
func (nopMetrics) SetSnapshotSize(int)               {}

// Options - политика списка и зависимости, которые можно не задавать
type Options struct {
	Policy         ListPolicy
	PopularSymbols []string
	Clock          Clock
	Metrics        Metrics
}

// Service - держит кэш и обновляет его из провайдера
type Service struct {
	provider SnapshotProvider
	cache    *Cache
	policy   ListPolicy
	popular  []string
	clock    Clock
	metrics  Metrics
	logger   *slog.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(*View)
}

// NewService - конструктор сервиса рынка
func NewService(provider SnapshotProvider, opts Options, logger *slog.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAll
	}
	return &Service{
		provider:  provider,
		cache:     NewCache(),
		policy:    opts.Policy,
		popular:   opts.PopularSymbols,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    logger,
		listeners: make(map[int]func(*View)),
	}
}

// Refresh - один цикл: получить снимок и заменить кэш.
// При ошибке прошлый снимок остаётся, в View поднимается флаг ошибки.
func (s *Service) Refresh(ctx context.Context) error {
	started := s.clock.Now()
	snap, err := s.provider.FetchSnapshot(ctx)
	s.metrics.ObserveFetch(s.clock.Now().Sub(started), err)

	if err != nil {
		if !errors.Is(err, derrors.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", derrors.ErrFetchFailed, err)
		}
		if s.cache.MarkFailed(ctx, err, s.clock.Now()) {
			s.logger.Warn("market refresh failed, keeping previous snapshot", slog.Any("err", err))
			s.notify()
		}
		return err
	}

	snap.Coins = ApplyPolicy(s.policy, s.popular, snap.Coins)
	if !s.cache.Apply(ctx, snap) {
		s.logger.Debug("market refresh result discarded, context done")
		return ctx.Err()
	}
	s.metrics.SetSnapshotSize(len(snap.Coins))
	s.logger.Debug("market snapshot updated",
		slog.Int("coins", len(snap.Coins)),
		slog.Uint64("version", s.cache.Load().Version),
	)
	s.notify()
	return nil
}

// Current - текущее состояние кэша для читателей
func (s *Service) Current() *View {
	return s.cache.Load()
}

// Render - производное представление по текущему снимку
func (s *Service) Render(query string, kind ViewKind, watchlist map[string]struct{}) Result {
	return Render(s.cache.Load(), query, kind, watchlist)
}

// Has - есть ли монета в текущем снимке
func (s *Service) Has(id string) bool {
	_, ok := Find(s.cache.Load(), id)
	return ok
}

// OnUpdate - подписка на публикацию нового View. Возвращает отписку.
// Колбэк вызывается в горутине планировщика и не должен блокироваться.
func (s *Service) OnUpdate(fn func(*View)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify() {
	v := s.cache.Load()
	s.mu.RLock()
	fns := make([]func(*View), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}
