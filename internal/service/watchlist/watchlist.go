package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
)

//go:generate mockgen -destination=mocks/mock_watchlist.go -package=mocks . Store,Metrics

// Store - внешнее хранилище watchlist. Save перезаписывает набор целиком.
// Для неизвестного пользователя Load возвращает пустой список без ошибки.
type Store interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Save(ctx context.Context, userID string, ids []string) error
}

// Metrics - результаты чтения и записи во внешнее хранилище
type Metrics interface {
	ObserveLoad(err error)
	ObserveWrite(err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveLoad(error)  {}
func (nopMetrics) ObserveWrite(error) {}

// State - стадия загрузки watchlist
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

const (
	noticeLoadFailed  = "Could not load your watchlist. Editing is paused until it loads."
	noticeWriteFailed = "Could not save your watchlist. Changes are kept locally for now."
)

// Options - параметры синхронизации
type Options struct {
	WriteTimeout time.Duration
	QueueSize    int
	Metrics      Metrics
}

// Sync - watchlist одной сессии: локальный набор плюс упорядоченная запись наружу.
// Локальное состояние обновляется сразу, удалённое догоняет его в порядке мутаций.
type Sync struct {
	userID       string
	store        Store
	logger       *slog.Logger
	metrics      Metrics
	writeTimeout time.Duration
	queueSize    int

	loadMu sync.Mutex

	mu         sync.Mutex
	state      State
	loadFailed bool
	ids        map[string]struct{}
	lastErr    error
	notice     string
	closed     bool
	pending    [][]string
	writing    bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New - создаёт watchlist сессии и запускает её писателя
func New(userID string, store Store, opts Options, logger *slog.Logger) *Sync {
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sync{
		userID:       userID,
		store:        store,
		logger:       logger.With(slog.String("user_id", userID)),
		metrics:      opts.Metrics,
		writeTimeout: opts.WriteTimeout,
		queueSize:    opts.QueueSize,
		ids:          map[string]struct{}{},
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go s.writer()
	return s
}

// Load - читает набор из хранилища, пока чтение не удастся; после успеха ничего не делает.
// При ошибке watchlist остаётся Unloaded: запись пустого набора затёрла бы удалённый.
func (s *Sync) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return derrors.ErrSessionNotFound
	}
	if s.state == Loaded {
		s.mu.Unlock()
		return nil
	}
	s.state = Loading
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	ids, err := s.store.Load(ctx, s.userID)
	s.metrics.ObserveLoad(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Unloaded
		s.loadFailed = true
		s.lastErr = fmt.Errorf("%w: load: %w", derrors.ErrWatchlistSync, err)
		s.notice = noticeLoadFailed
		s.logger.Warn("watchlist load failed, editing paused until it loads", slog.Any("err", err))
		return s.lastErr
	}
	s.state = Loaded
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	if s.loadFailed {
		s.loadFailed = false
		s.lastErr = nil
		s.notice = ""
	}
	s.logger.Debug("watchlist loaded", slog.Int("count", len(s.ids)))
	return nil
}

// ensureLoaded - перед мутацией повторяет неудавшееся чтение
func (s *Sync) ensureLoaded() error {
	s.mu.Lock()
	closed, state, retry := s.closed, s.state, s.loadFailed
	s.mu.Unlock()

	switch {
	case closed:
		return derrors.ErrSessionNotFound
	case state == Loaded:
		return nil
	case state == Unloaded && retry:
		if err := s.Load(s.ctx); err != nil {
			if errors.Is(err, derrors.ErrSessionNotFound) {
				return err
			}
			return derrors.ErrWatchlistNotLoaded
		}
		return nil
	default:
		return derrors.ErrWatchlistNotLoaded
	}
}

// Add - добавить монету. Повторное добавление ничего не пишет.
func (s *Sync) Add(id string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if _, ok := s.ids[id]; ok {
		return nil
	}
	s.ids[id] = struct{}{}
	s.enqueueLocked()
	return nil
}

// Remove - убрать монету. Удаление отсутствующей ничего не пишет.
func (s *Sync) Remove(id string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if _, ok := s.ids[id]; !ok {
		return nil
	}
	delete(s.ids, id)
	s.enqueueLocked()
	return nil
}

// Toggle - добавить, если монеты нет, иначе убрать. Возвращает новое членство.
func (s *Sync) Toggle(id string) (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return false, err
	}
	_, had := s.ids[id]
	if had {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.enqueueLocked()
	return !had, nil
}

func (s *Sync) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs - отсортированная копия набора
func (s *Sync) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Set - копия набора для фильтра вкладки watchlist
func (s *Sync) Set() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notice - сообщение для пользователя о последней ошибке синхронизации
func (s *Sync) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Sync) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close - конец сессии: неотправленные записи отбрасываются, новые не начинаются.
// Ждёт завершения текущей записи.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	if n := len(s.pending); n > 0 {
		s.logger.Debug("dropping pending watchlist writes", slog.Int("count", n))
	}
	s.pending = nil
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

func (s *Sync) mutableLocked() error {
	if s.closed {
		return derrors.ErrSessionNotFound
	}
	if s.state != Loaded {
		return derrors.ErrWatchlistNotLoaded
	}
	return nil
}

// enqueueLocked - ставит в очередь полный набор на момент мутации.
// Каждая запись перезаписывает набор целиком, поэтому при переполнении
// можно выбросить самые старые без потери итогового состояния.
func (s *Sync) enqueueLocked() {
	s.pending = append(s.pending, s.sortedLocked())
	if over := len(s.pending) - s.queueSize; over > 0 {
		s.logger.Warn("watchlist write queue full, dropping oldest writes", slog.Int("dropped", over))
		s.pending = slices.Delete(s.pending, 0, over)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sync) sortedLocked() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// writer - единственная горутина, которая пишет в хранилище
func (s *Sync) writer() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for {
			ids, ok := s.next()
			if !ok {
				break
			}
			s.write(ids)
		}
	}
}

func (s *Sync) next() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writing = false
	if s.closed || len(s.pending) == 0 {
		return nil, false
	}
	ids := s.pending[0]
	s.pending = s.pending[1:]
	s.writing = true
	return ids, true
}

func (s *Sync) write(ids []string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
	defer cancel()

	err := s.store.Save(ctx, s.userID, ids)
	s.metrics.ObserveWrite(err)
	if err == nil {
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	// локальное состояние не откатывается
	s.logger.Error("watchlist write failed", slog.Any("err", err), slog.Int("count", len(ids)))
	s.mu.Lock()
	s.lastErr = fmt.Errorf("%w: save: %w", derrors.ErrWatchlistSync, err)
	s.notice = noticeWriteFailed
	s.mu.Unlock()
}
