package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks . Refresher,Metrics

// Refresher - один цикл обновления снимка рынка
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Metrics - счётчик пропущенных тиков
type Metrics interface {
	TickSkipped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) TickSkipped(string) {}

// Options - интервал обновления и ограничение внеочередных запросов
type Options struct {
	Interval time.Duration
	// DemandMinGap - Trigger игнорируется, если с начала прошлого запроса прошло меньше.
	// 0 - без ограничения.
	DemandMinGap time.Duration
	Metrics      Metrics
}

type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	minGap    time.Duration
	logger    *slog.Logger
	metrics   Metrics
	now       func() time.Time

	trigger   chan struct{}
	busy      atomic.Bool
	lastStart atomic.Int64 // unix nano начала последнего запроса
	wg        sync.WaitGroup
}

// NewScheduler - конструктор планировщика фонового обновления рынка
func NewScheduler(refresher Refresher, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Scheduler{
		refresher: refresher,
		interval:  opts.Interval,
		minGap:    opts.DemandMinGap,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
	}
}

// Start - запускает периодическое обновление до остановки контекста.
// Перед выходом дожидается запроса, который ещё выполняется.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")
	s.logger.Debug("scheduler interval configured", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	// первый запуск сразу
	s.tryRun(ctx, "initial")

	for {
		select {
		case <-ticker.C:
			s.tryRun(ctx, "tick")
		case <-s.trigger:
			s.tryRun(ctx, "demand")
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// Trigger - внеочередное обновление (пользователь открыл вкладку рынка или watchlist).
// Не блокируется: повторные запросы до обработки склеиваются в один.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// tryRun - не больше одного запроса одновременно, лишние тики пропускаются, а не копятся
func (s *Scheduler) tryRun(ctx context.Context, reason string) {
	if reason == "demand" && s.throttled() {
		s.logger.Debug("demand refresh skipped: too soon after last fetch")
		s.metrics.TickSkipped("demand_throttled")
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("tick skipped: fetch in flight", slog.String("reason", reason))
		s.metrics.TickSkipped(reason)
		return
	}
	s.lastStart.Store(s.now().UnixNano())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.runOnce(ctx, reason)
	}()
}

func (s *Scheduler) throttled() bool {
	if s.minGap <= 0 {
		return false
	}
	last := s.lastStart.Load()
	return last != 0 && s.now().Sub(time.Unix(0, last)) < s.minGap
}

// runOnce - одна итерация: получить рынок и обновить кэш
func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	s.logger.Debug("tick: running fetch cycle", slog.String("reason", reason))
	if err := s.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("tick: fetch cancelled", slog.Any("err", err))
			return
		}
		s.logger.Error("tick: fetch failed", slog.Any("err", err))
		return
	}
	s.logger.Debug("tick: fetch cycle completed")
}
