package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/pkg/botfmt"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"gopkg.in/telebot.v4"
)

const (
	helpText = "Привет! Доступные команды:\n" +
		"/markets - рынок по капитализации\n" +
		"/markets {запрос} - поиск по имени или символу\n" +
		"/top - лидеры роста и падения, тренды\n" +
		"/coin {id} - подробности о монете\n" +
		"/login {email} {пароль} - войти\n" +
		"/logout - выйти\n" +
		"/watch {id} - добавить в избранное (id как в списке, например bitcoin)\n" +
		"/unwatch {id} - убрать из избранного\n" +
		"/watchlist - избранное"

	msgNoData        = "Данные рынка ещё загружаются, попробуйте через несколько секунд"
	msgNotFound      = "Ничего не найдено"
	msgLoginRequired = "Сначала войдите: /login {email} {пароль}"
	msgInternal      = "Внутренняя ошибка сервиса, попробуйте позже"

	defaultListLimit = 15
	loginTimeout     = 5 * time.Second
)

// handlers - логика команд без зависимости от telebot.Context
type handlers struct {
	market   MarketReader
	trigger  RefreshTrigger
	sessions Sessions
	limit    int
	logger   *slog.Logger

	mu    sync.RWMutex
	chats map[int64]string // chat id -> токен сессии
}

func newHandlers(mkt MarketReader, trigger RefreshTrigger, sessions Sessions, limit int, logger *slog.Logger) *handlers {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return &handlers{
		market:   mkt,
		trigger:  trigger,
		sessions: sessions,
		limit:    limit,
		logger:   logger,
		chats:    make(map[int64]string),
	}
}

func (h *handlers) session(chatID int64) *session.Session {
	h.mu.RLock()
	tok, ok := h.chats[chatID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	s, err := h.sessions.Get(tok)
	if err != nil {
		// сессия истекла
		h.mu.Lock()
		delete(h.chats, chatID)
		h.mu.Unlock()
		return nil
	}
	return s
}

func (h *handlers) markets(args []string) string {
	h.trigger.Trigger()
	v := h.market.Current()
	if v.Snapshot.Empty() {
		return msgNoData
	}
	q := strings.Join(args, " ")
	res := market.Render(v, q, market.ViewMarkets, nil)
	if len(res.Rows) == 0 {
		return msgNotFound + botfmt.StaleNote(v)
	}
	title := "Рынок"
	if q != "" {
		title = "Поиск: " + q
	}
	return botfmt.FormatList(title, res.Rows, h.limit) + botfmt.StaleNote(v)
}

func (h *handlers) top() string {
	v := h.market.Current()
	res := market.Render(v, "", market.ViewHome, nil)
	if res.NoData {
		return msgNoData
	}
	return botfmt.FormatOverview(*res.Overview) + botfmt.StaleNote(v)
}

func (h *handlers) coin(args []string) string {
	if len(args) != 1 {
		return "Формат: /coin {id}"
	}
	v := h.market.Current()
	if v.Snapshot.Empty() {
		return msgNoData
	}
	row, ok := market.Find(v, strings.ToLower(args[0]))
	if !ok {
		return "Монета не найдена: " + args[0]
	}
	return botfmt.FormatCoinDetails(row) + botfmt.StaleNote(v)
}

func (h *handlers) login(ctx context.Context, chatID int64, args []string) string {
	if len(args) != 2 {
		return "Формат: /login {email} {пароль}"
	}
	s, err := h.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		var ae *derrors.AuthError
		if errors.As(err, &ae) {
			return "Не удалось войти: " + ae.Reason
		}
		h.logger.Error("bot: login failed", slog.Int64("chat_id", chatID), slog.Any("err", err))
		return msgInternal
	}

	h.mu.Lock()
	prev, had := h.chats[chatID]
	h.chats[chatID] = s.Token
	h.mu.Unlock()
	if had {
		_ = h.sessions.Logout(prev)
	}

	msg := "Вы вошли как " + s.User.Email
	if n := s.Watchlist.Notice(); n != "" {
		msg += "\n" + n
	}
	return msg
}

func (h *handlers) logout(chatID int64) string {
	h.mu.Lock()
	tok, ok := h.chats[chatID]
	delete(h.chats, chatID)
	h.mu.Unlock()
	if !ok {
		return "Вы не вошли"
	}
	_ = h.sessions.Logout(tok)
	return "Вы вышли"
}

func (h *handlers) watch(chatID int64, args []string, add bool) string {
	s := h.session(chatID)
	if s == nil {
		return msgLoginRequired
	}
	if len(args) != 1 {
		if add {
			return "Формат: /watch {id}"
		}
		return "Формат: /unwatch {id}"
	}
	id := strings.ToLower(args[0])

	var err error
	if add {
		if !h.market.Has(id) {
			return "Монета не найдена: " + id
		}
		err = s.Watchlist.Add(id)
	} else {
		err = s.Watchlist.Remove(id)
	}
	if err != nil {
		return h.watchlistError(chatID, err)
	}

	msg := "Убрано из избранного: " + id
	if add {
		msg = "Добавлено в избранное: " + id
	}
	if n := s.Watchlist.Notice(); n != "" {
		msg += "\n" + n
	}
	return msg
}

func (h *handlers) watchlist(chatID int64, args []string) string {
	s := h.session(chatID)
	if s == nil {
		return msgLoginRequired
	}
	h.trigger.Trigger()

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	// повтор чтения, если при входе оно не удалось
	_ = s.Watchlist.Load(ctx)

	v := h.market.Current()
	if v.Snapshot.Empty() {
		return msgNoData
	}
	res := market.Render(v, strings.Join(args, " "), market.ViewWatchlist, s.Watchlist.Set())
	msg := "Избранное пусто. Добавьте монету: /watch {id}"
	if len(res.Rows) > 0 {
		msg = botfmt.FormatList("Избранное", res.Rows, h.limit)
	}
	if n := s.Watchlist.Notice(); n != "" {
		msg += "\n\n" + n
	}
	return msg + botfmt.StaleNote(v)
}

func (h *handlers) watchlistError(chatID int64, err error) string {
	switch {
	case errors.Is(err, derrors.ErrWatchlistNotLoaded):
		return "Избранное ещё загружается, попробуйте через секунду"
	case errors.Is(err, derrors.ErrSessionNotFound):
		return msgLoginRequired
	default:
		h.logger.Error("bot: watchlist update failed", slog.Int64("chat_id", chatID), slog.Any("err", err))
		return msgInternal
	}
}

// handleStart - справка по командам
func (b *Bot) handleStart(c telebot.Context) error {
	return c.Send(helpText)
}

func (b *Bot) handleMarkets(c telebot.Context) error {
	return c.Send(b.h.markets(c.Args()))
}

func (b *Bot) handleTop(c telebot.Context) error {
	return c.Send(b.h.top())
}

func (b *Bot) handleCoin(c telebot.Context) error {
	return c.Send(b.h.coin(c.Args()))
}

// handleLogin - сообщение с паролем удаляется из чата
func (b *Bot) handleLogin(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	reply := b.h.login(ctx, c.Chat().ID, c.Args())
	if err := c.Delete(); err != nil {
		b.logger.Debug("bot: could not delete login message", slog.Any("err", err))
	}
	return c.Send(reply)
}

func (b *Bot) handleLogout(c telebot.Context) error {
	return c.Send(b.h.logout(c.Chat().ID))
}

func (b *Bot) handleWatch(c telebot.Context) error {
	return c.Send(b.h.watch(c.Chat().ID, c.Args(), true))
}

func (b *Bot) handleUnwatch(c telebot.Context) error {
	return c.Send(b.h.watch(c.Chat().ID, c.Args(), false))
}

func (b *Bot) handleWatchlist(c telebot.Context) error {
	return c.Send(b.h.watchlist(c.Chat().ID, c.Args()))
}
