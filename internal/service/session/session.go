package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/pkg/token"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist"
	"github.com/patrickmn/go-cache"
)

//go:generate mockgen -destination=mocks/mock_session.go -package=mocks . Authenticator

// Authenticator - провайдер идентификации
type Authenticator interface {
	Register(ctx context.Context, email, password string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
}

// Session - вошедший пользователь и его watchlist
type Session struct {
	Token     string
	User      domain.User
	Watchlist *watchlist.Sync
	CreatedAt time.Time
}

type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	Watchlist       watchlist.Options
}

// Manager - жизненный цикл сессий. Watchlist читается один раз при создании сессии.
type Manager struct {
	auth     Authenticator
	store    watchlist.Store
	wlOpts   watchlist.Options
	sessions *cache.Cache
	logger   *slog.Logger
}

func NewManager(auth Authenticator, store watchlist.Store, opts Options, logger *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	m := &Manager{
		auth:     auth,
		store:    store,
		wlOpts:   opts.Watchlist,
		sessions: cache.New(opts.TTL, opts.CleanupInterval),
		logger:   logger,
	}
	// истечение и выход одинаково останавливают запись watchlist
	m.sessions.OnEvicted(func(tok string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Watchlist.Close()
			m.logger.Debug("session closed", slog.String("user_id", s.User.ID))
		}
	})
	return m
}

// Login - вход и новая сессия
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, u)
}

// Register - регистрация сразу с входом
func (m *Manager) Register(ctx context.Context, email, password string) (*Session, error) {
	u, err := m.auth.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, u)
}

// Get - восстановить сессию по токену без повторной загрузки watchlist
func (m *Manager) Get(tok string) (*Session, error) {
	v, ok := m.sessions.Get(tok)
	if !ok {
		return nil, derrors.ErrSessionNotFound
	}
	return v.(*Session), nil
}

// Logout - забыть сессию; неотправленные записи watchlist отбрасываются
func (m *Manager) Logout(tok string) error {
	if _, ok := m.sessions.Get(tok); !ok {
		return derrors.ErrSessionNotFound
	}
	m.sessions.Delete(tok)
	return nil
}

// LogoutUser - закрыть все сессии пользователя, например после смены пароля.
// Возвращает число закрытых сессий.
func (m *Manager) LogoutUser(userID string) int {
	n := 0
	for tok, item := range m.sessions.Items() {
		if s, ok := item.Object.(*Session); ok && s.User.ID == userID {
			m.sessions.Delete(tok)
			n++
		}
	}
	if n > 0 {
		m.logger.Info("user sessions revoked", slog.String("user_id", userID), slog.Int("count", n))
	}
	return n
}

// Count - число живых сессий
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Close - закрыть все сессии (остановка приложения)
func (m *Manager) Close() {
	for tok := range m.sessions.Items() {
		m.sessions.Delete(tok)
	}
}

func (m *Manager) open(ctx context.Context, u domain.User) (*Session, error) {
	tok, err := token.New()
	if err != nil {
		return nil, fmt.Errorf("new session token: %w", err)
	}
	s := &Session{
		Token:     tok,
		User:      u,
		Watchlist: watchlist.New(u.ID, m.store, m.wlOpts, m.logger),
		CreatedAt: time.Now().UTC(),
	}
	m.sessions.SetDefault(tok, s)

	// ошибка чтения не мешает входу: пользователь увидит уведомление.
	// Чтение ограничено своим таймаутом, а не дедлайном запроса.
	if err := s.Watchlist.Load(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("session started with empty watchlist", slog.String("user_id", u.ID), slog.Any("err", err))
	}
	m.logger.Info("session opened", slog.String("user_id", u.ID))
	return s, nil
}
