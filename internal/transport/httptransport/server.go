package httptransport

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MarketReader - чтение кэша рынка
type MarketReader interface {
	Current() *market.View
	Has(id string) bool
	OnUpdate(fn func(*market.View)) (unsubscribe func())
}

// RefreshTrigger - внеочередное обновление по запросу пользователя
type RefreshTrigger interface {
	Trigger()
}

// Sessions - вход, выход и восстановление сессии
type Sessions interface {
	Register(ctx context.Context, email, password string) (*session.Session, error)
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Get(token string) (*session.Session, error)
	Logout(token string) error
	LogoutUser(userID string) int
}

// PasswordResetter - сброс пароля через провайдера идентификации
type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// WSMetrics - число подключённых WebSocket клиентов
type WSMetrics interface {
	WSConnected()
	WSDisconnected()
}

// Deps - всё, что нужно HTTP слою
type Deps struct {
	Market   MarketReader
	Trigger  RefreshTrigger
	Sessions Sessions
	Auth     PasswordResetter
	Metrics  http.Handler // nil - /metrics не регистрируется
	WS       WSMetrics
}

type Server struct {
	echo    *echo.Echo
	cfg     config.ServerConfig
	deps    Deps
	logger  *slog.Logger
	timeout time.Duration
}

// requestValidator - go-playground/validator для c.Validate
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

func NewServer(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if deps.Market == nil || deps.Sessions == nil || deps.Auth == nil {
		log.Fatal("nil service")
	}
	if deps.Trigger == nil {
		deps.Trigger = noopTrigger{}
	}
	if deps.WS == nil {
		deps.WS = noopWSMetrics{}
	}
	// Задаём таймаут по умолчанию, если он не задан
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:    e,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		timeout: timeout,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET("/healthz", s.Health)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}

	e.GET("/markets", s.GetMarkets)
	e.GET("/markets/:id", s.GetCoin)
	e.GET("/overview", s.GetOverview)
	e.GET("/ws", s.Stream)

	a := e.Group("/auth")
	a.POST("/register", s.Register)
	a.POST("/login", s.Login)
	a.POST("/logout", s.Logout, s.requireSession)
	a.POST("/password-reset", s.RequestPasswordReset)
	a.POST("/password-reset/confirm", s.ConfirmPasswordReset)

	w := e.Group("/watchlist", s.requireSession)
	w.GET("", s.GetWatchlist)
	w.POST("/:id/toggle", s.ToggleWatchlist)
	w.PUT("/:id", s.AddToWatchlist)
	w.DELETE("/:id", s.RemoveFromWatchlist)
}

// Handler - для тестов через httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start - блокирует до остановки сервера
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.echo,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.logger.Info("http server started", slog.String("addr", s.cfg.Addr))
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.echo.Shutdown(ctx)
}

func (s *Server) Health(c echo.Context) error {
	v := s.deps.Market.Current()
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"no_data": v.Snapshot.Empty(),
		"stale":   v.Stale(),
		"version": v.Version,
	})
}

type noopTrigger struct{}

func (noopTrigger) Trigger() {}

type noopWSMetrics struct{}

func (noopWSMetrics) WSConnected()    {}
func (noopWSMetrics) WSDisconnected() {}
