package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"gopkg.in/telebot.v4"
)

// MarketReader - чтение кэша рынка
type MarketReader interface {
	Current() *market.View
	Has(id string) bool
}

// RefreshTrigger - внеочередное обновление
type RefreshTrigger interface {
	Trigger()
}

// Sessions - вход и выход пользователя
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Get(token string) (*session.Session, error)
	Logout(token string) error
}

// Bot - Telegram-адаптер над теми же представлениями, что и HTTP
type Bot struct {
	bot    *telebot.Bot
	h      *handlers
	logger *slog.Logger
}

// New создаёт бота и регистрирует команды
func New(cfg config.TelegramConfig, mkt MarketReader, trigger RefreshTrigger, sessions Sessions, logger *slog.Logger) (*Bot, error) {
	pollTimeout := cfg.LongPollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, err
	}

	h := newHandlers(mkt, trigger, sessions, cfg.ListLimit, logger)
	bot := &Bot{bot: b, h: h, logger: logger}

	// маршруты команд
	b.Handle("/start", bot.handleStart)
	b.Handle("/markets", bot.handleMarkets)
	b.Handle("/top", bot.handleTop)
	b.Handle("/coin", bot.handleCoin)
	b.Handle("/login", bot.handleLogin)
	b.Handle("/logout", bot.handleLogout)
	b.Handle("/watch", bot.handleWatch)
	b.Handle("/unwatch", bot.handleUnwatch)
	b.Handle("/watchlist", bot.handleWatchlist)
	return bot, nil
}

// Start - блокирует до отмены контекста
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("telegram bot started")
	go b.bot.Start()
	<-ctx.Done()
	b.bot.Stop()
	b.logger.Info("telegram bot stopped")
}
