package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository/memory"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct{ view *market.View }

func (f *fakeMarket) Current() *market.View { return f.view }

func (f *fakeMarket) Has(id string) bool {
	for _, c := range f.view.Snapshot.Coins {
		if c.ID == id {
			return true
		}
	}
	return false
}

type countingTrigger struct{ n atomic.Int32 }

func (t *countingTrigger) Trigger() { t.n.Add(1) }

// fakeSessions - один пользователь с паролем "secret1"
type fakeSessions struct {
	store    *memory.WatchlistStore
	sessions map[string]*session.Session
	loggedIn int
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*session.Session, error) {
	if password != "secret1" {
		return nil, derrors.NewAuthError("invalid credentials", nil)
	}
	f.loggedIn++
	wl := watchlist.New("u1", f.store, watchlist.Options{WriteTimeout: time.Second}, slog.Default())
	if err := wl.Load(ctx); err != nil {
		return nil, err
	}
	tok := fmt.Sprintf("tok-%d", f.loggedIn)
	s := &session.Session{Token: tok, User: domain.User{ID: "u1", Email: email}, Watchlist: wl}
	f.sessions[tok] = s
	return s, nil
}

func (f *fakeSessions) Get(tok string) (*session.Session, error) {
	s, ok := f.sessions[tok]
	if !ok {
		return nil, derrors.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) Logout(tok string) error {
	if s, ok := f.sessions[tok]; ok {
		s.Watchlist.Close()
		delete(f.sessions, tok)
	}
	return nil
}

func testCoin(id, sym string, price, change float64, rank int) domain.Coin {
	return domain.Coin{
		ID:           id,
		Name:         id,
		Symbol:       sym,
		Price:        decimal.NewFromFloat(price),
		Change24hPct: decimal.NewFromFloat(change),
		MarketCap:    decimal.NewFromInt(int64(1_000_000 - rank)),
		Volume24h:    decimal.NewFromInt(100),
		Rank:         rank,
	}
}

func setupHandlers(t *testing.T, view *market.View) (*handlers, *countingTrigger, *fakeSessions) {
	t.Helper()
	trigger := &countingTrigger{}
	sessions := &fakeSessions{store: memory.NewWatchlistStore(), sessions: map[string]*session.Session{}}
	t.Cleanup(func() {
		for tok := range sessions.sessions {
			_ = sessions.Logout(tok)
		}
	})
	return newHandlers(&fakeMarket{view: view}, trigger, sessions, 2, slog.Default()), trigger, sessions
}

func liveView() *market.View {
	return &market.View{
		Snapshot: domain.Snapshot{
			Coins: []domain.Coin{
				testCoin("bitcoin", "BTC", 50000, 2.5, 1),
				testCoin("ethereum", "ETH", 3000, -1.2, 2),
				testCoin("solana", "SOL", 150, 8.1, 3),
			},
			FetchedAt: time.Now(),
		},
		Directions: map[string]domain.Direction{"bitcoin": domain.Up},
		Version:    1,
	}
}

func TestMarkets(t *testing.T) {
	t.Parallel()

	h, trigger, _ := setupHandlers(t, liveView())

	msg := h.markets(nil)
	assert.Contains(t, msg, "▲ #1 BTC | $50000.00 | +2.50%")
	assert.Contains(t, msg, "…и ещё 1")
	assert.Equal(t, int32(1), trigger.n.Load())

	// поиск по символу
	msg = h.markets([]string{"sol"})
	assert.Contains(t, msg, "Поиск: sol")
	assert.Contains(t, msg, "SOL")
	assert.NotContains(t, msg, "BTC")

	assert.Equal(t, msgNotFound, h.markets([]string{"nothing"}))
}

func TestMarkets_NoData(t *testing.T) {
	t.Parallel()

	h, _, _ := setupHandlers(t, &market.View{})
	assert.Equal(t, msgNoData, h.markets(nil))
	assert.Equal(t, msgNoData, h.top())
}

func TestMarkets_Stale(t *testing.T) {
	t.Parallel()

	v := liveView()
	v.LastError = derrors.ErrFetchFailed
	v.FailedAt = time.Now()
	h, _, _ := setupHandlers(t, v)

	assert.Contains(t, h.markets(nil), "Данные могут быть устаревшими")
}

func TestTop(t *testing.T) {
	t.Parallel()

	h, _, _ := setupHandlers(t, liveView())
	msg := h.top()
	assert.Contains(t, msg, "Лидеры роста")
	assert.Contains(t, msg, "Монет: 3")
}

func TestCoin(t *testing.T) {
	t.Parallel()

	h, _, _ := setupHandlers(t, liveView())
	assert.Contains(t, h.coin([]string{"Bitcoin"}), "bitcoin (BTC) #1")
	assert.Contains(t, h.coin([]string{"bitcoin"}), "Исторический максимум: нет данных")
	assert.Equal(t, "Монета не найдена: dogecoin", h.coin([]string{"dogecoin"}))
	assert.Contains(t, h.coin(nil), "Формат")
}

func TestLoginLogout(t *testing.T) {
	t.Parallel()

	h, _, sessions := setupHandlers(t, liveView())

	assert.Contains(t, h.login(context.Background(), 1, []string{"a@b.c"}), "Формат")
	assert.Contains(t, h.login(context.Background(), 1, []string{"a@b.c", "wrong"}), "invalid credentials")

	assert.Equal(t, "Вы вошли как a@b.c", h.login(context.Background(), 1, []string{"a@b.c", "secret1"}))
	require.Len(t, sessions.sessions, 1)

	// повторный вход закрывает прошлую сессию
	h.login(context.Background(), 1, []string{"a@b.c", "secret1"})
	require.Len(t, sessions.sessions, 1)

	assert.Equal(t, "Вы вышли", h.logout(1))
	assert.Empty(t, sessions.sessions)
	assert.Equal(t, "Вы не вошли", h.logout(1))
}

func TestWatch(t *testing.T) {
	t.Parallel()

	h, trigger, _ := setupHandlers(t, liveView())

	assert.Equal(t, msgLoginRequired, h.watch(1, []string{"bitcoin"}, true))
	assert.Equal(t, msgLoginRequired, h.watchlist(1, nil))

	h.login(context.Background(), 1, []string{"a@b.c", "secret1"})

	assert.Contains(t, h.watchlist(1, nil), "Избранное пусто")
	assert.Equal(t, "Монета не найдена: dogecoin", h.watch(1, []string{"dogecoin"}, true))
	assert.Equal(t, "Добавлено в избранное: bitcoin", h.watch(1, []string{"Bitcoin"}, true))
	assert.Equal(t, "Добавлено в избранное: solana", h.watch(1, []string{"solana"}, true))

	msg := h.watchlist(1, nil)
	assert.Contains(t, msg, "BTC")
	assert.Contains(t, msg, "SOL")
	assert.NotContains(t, msg, "ETH")
	assert.Positive(t, trigger.n.Load())

	// удаление разрешено даже для монеты, которой нет в снимке
	assert.Equal(t, "Убрано из избранного: dogecoin", h.watch(1, []string{"dogecoin"}, false))
	assert.Equal(t, "Убрано из избранного: bitcoin", h.watch(1, []string{"bitcoin"}, false))
	assert.NotContains(t, h.watchlist(1, nil), "BTC")

	assert.Contains(t, h.watch(1, nil, false), "/unwatch")
}

func TestWatch_ExpiredSession(t *testing.T) {
	t.Parallel()

	h, _, sessions := setupHandlers(t, liveView())
	h.login(context.Background(), 7, []string{"a@b.c", "secret1"})

	// сессия истекла на стороне менеджера
	for tok := range sessions.sessions {
		_ = sessions.Logout(tok)
	}
	assert.Equal(t, msgLoginRequired, h.watch(7, []string{"bitcoin"}, true))
	assert.Equal(t, "Вы не вошли", h.logout(7))
}

func TestWatchlistError(t *testing.T) {
	t.Parallel()

	h, _, _ := setupHandlers(t, liveView())
	assert.Contains(t, h.watchlistError(1, derrors.ErrWatchlistNotLoaded), "загружается")
	assert.Equal(t, msgLoginRequired, h.watchlistError(1, derrors.ErrSessionNotFound))
	assert.Equal(t, msgInternal, h.watchlistError(1, errors.New("boom")))
}
