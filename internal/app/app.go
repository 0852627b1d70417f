package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/consts"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/infra/api_client"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/infra/db"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/infra/mongodb"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/observability"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository/memory"
	repomongo "github.com/NastyaGoryachaya/crypto-tracker/internal/repository/mongo"
	repopg "github.com/NastyaGoryachaya/crypto-tracker/internal/repository/postgres"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/scheduler"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/auth"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/transport/bot"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/transport/httptransport"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db    *pgxpool.Pool
	mongo *mongo.Client

	metrics  *observability.Metrics
	market   *market.Service
	updater  *scheduler.Scheduler
	sessions *session.Manager
	server   *httptransport.Server
	bot      *bot.Bot
}

// stores - хранилища пользователей и watchlist для выбранного backend
type stores struct {
	users     auth.CredentialStore
	watchlist watchlist.Store
}

// NewApp - собирает зависимости. Хранилища подключаются здесь, чтобы ошибка была видна до старта.
func NewApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	policy, err := market.ParseListPolicy(cfg.Market.ListPolicy)
	if err != nil {
		return nil, err
	}
	popular := cfg.Market.PopularSymbols
	if len(popular) == 0 {
		popular = consts.PopularSymbols
	}

	marketOpts := market.Options{Policy: policy, PopularSymbols: popular}
	var (
		schedMetrics scheduler.Metrics
		wlMetrics    watchlist.Metrics
	)
	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		marketOpts.Metrics = a.metrics
		schedMetrics = a.metrics
		wlMetrics = a.metrics
	}

	provider := api_client.NewClient(api_client.Config{
		BaseURL:          cfg.Market.BaseURL,
		APIKey:           cfg.Market.APIKey,
		Currency:         cfg.Market.Currency,
		PerPage:          cfg.Market.PerPage,
		Page:             cfg.Market.Page,
		IncludeSparkline: cfg.Market.IncludeSparkline,
		Timeout:          cfg.Market.Timeout,
		UserAgent:        cfg.Market.UserAgent,
	}, log)
	a.market = market.NewService(provider, marketOpts, log)

	if cfg.Scheduler.Enabled {
		a.updater = scheduler.NewScheduler(a.market, scheduler.Options{
			Interval:     cfg.Scheduler.Interval,
			DemandMinGap: cfg.Scheduler.DemandMinGap,
			Metrics:      schedMetrics,
		}, log)
	}

	st, err := a.openStores(ctx)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	authSvc := auth.NewService(st.users, auth.NewLogMailer(log), auth.Options{
		MinPasswordLen: cfg.Auth.MinPasswordLen,
		BcryptCost:     cfg.Auth.BcryptCost,
		ResetTokenTTL:  cfg.Auth.ResetTokenTTL,
	}, log)

	a.sessions = session.NewManager(authSvc, st.watchlist, session.Options{
		TTL: cfg.Auth.SessionTTL,
		Watchlist: watchlist.Options{
			WriteTimeout: cfg.Watchlist.WriteTimeout,
			QueueSize:    cfg.Watchlist.QueueSize,
			Metrics:      wlMetrics,
		},
	}, log)

	deps := httptransport.Deps{
		Market:   a.market,
		Sessions: a.sessions,
		Auth:     authSvc,
	}
	if a.updater != nil {
		deps.Trigger = a.updater
	}
	if a.metrics != nil {
		deps.Metrics = a.metrics.Handler()
		deps.WS = a.metrics
	}
	a.server = httptransport.NewServer(cfg.Server, deps, log)

	if cfg.Telegram.Enabled {
		var trigger bot.RefreshTrigger = noopTrigger{}
		if a.updater != nil {
			trigger = a.updater
		}
		b, err := bot.New(cfg.Telegram, a.market, trigger, a.sessions, log)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("telegram init failed: %w", err)
		}
		a.bot = b
	}

	log.Info("app initialized",
		slog.String("http_addr", cfg.Server.Addr),
		slog.String("watchlist_backend", cfg.Watchlist.Backend),
		slog.String("list_policy", string(policy)),
		slog.Bool("scheduler_enabled", a.updater != nil),
		slog.Bool("telegram_enabled", a.bot != nil),
		slog.Bool("metrics_enabled", a.metrics != nil),
	)
	return a, nil
}

// openStores - пользователи живут в postgres для любого внешнего backend, watchlist - там, где указано
func (a *App) openStores(ctx context.Context) (stores, error) {
	backend := strings.ToLower(a.cfg.Watchlist.Backend)
	if backend == "memory" {
		a.log.Warn("memory backend: users and watchlists are lost on restart")
		return stores{users: memory.NewUserStore(), watchlist: memory.NewWatchlistStore()}, nil
	}

	pool, err := db.NewPool(ctx, &a.cfg.Postgres)
	if err != nil {
		return stores{}, err
	}
	a.db = pool
	if err := db.Migrate(ctx, pool); err != nil {
		return stores{}, err
	}
	st := stores{users: repopg.NewUserRepo(pool), watchlist: repopg.NewWatchlistRepo(pool)}

	if backend == "mongo" {
		client, err := mongodb.Connect(ctx, &a.cfg.Mongo)
		if err != nil {
			return stores{}, err
		}
		a.mongo = client
		st.watchlist = repomongo.NewWatchlistRepo(mongodb.Collection(client, &a.cfg.Mongo))
	}
	return st, nil
}

func (a *App) closeStores() {
	if a.mongo != nil {
		if err := a.mongo.Disconnect(context.Background()); err != nil {
			a.log.Error("mongo disconnect failed", slog.Any("err", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Run - блокирует до отмены контекста или падения HTTP сервера
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.updater != nil {
		g.Go(func() error {
			a.updater.Start(gctx)
			return nil
		})
	} else {
		// без планировщика снимок загружается один раз
		g.Go(func() error {
			if err := a.market.Refresh(gctx); err != nil {
				a.log.Error("initial market refresh failed", slog.Any("err", err))
			}
			return nil
		})
	}

	if a.bot != nil {
		g.Go(func() error {
			a.bot.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		return a.server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	a.closeStores()
	a.log.Info("application stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// закрывает watchlist всех сессий, незаписанные изменения отбрасываются
	a.sessions.Close()
	return errors.Join(errs...)
}

type noopTrigger struct{}

func (noopTrigger) Trigger() {}
