package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/labstack/echo/v4"
)

// GetMarkets - вкладка markets с поиском по ?q=; открытие вкладки запускает обновление
func (s *Server) GetMarkets(c echo.Context) error {
	s.deps.Trigger.Trigger()

	q := c.QueryParam("q")
	var wl map[string]struct{}
	if sess := s.optionalSession(c); sess != nil {
		wl = sess.Watchlist.Set()
	}

	v := s.deps.Market.Current()
	res := market.Render(v, q, market.ViewMarkets, wl)
	return c.JSON(http.StatusOK, makeResponse(v, res, q, wl))
}

// GetCoin - детали одной монеты из текущего снимка
func (s *Server) GetCoin(c echo.Context) error {
	id := coinID(c)
	v := s.deps.Market.Current()
	if v.Snapshot.Empty() {
		return s.respondError(c, "GetCoin", derrors.ErrNoData)
	}
	row, ok := market.Find(v, id)
	if !ok {
		return s.respondError(c, "GetCoin", derrors.ErrUnknownCoin)
	}

	var wl map[string]struct{}
	if sess := s.optionalSession(c); sess != nil {
		wl = sess.Watchlist.Set()
	}
	return c.JSON(http.StatusOK, DetailResponse{
		Meta: makeMeta(v),
		Coin: makeDetail(row, wl),
	})
}

// GetOverview - главная вкладка: лидеры, тренды, итоги
func (s *Server) GetOverview(c echo.Context) error {
	var wl map[string]struct{}
	if sess := s.optionalSession(c); sess != nil {
		wl = sess.Watchlist.Set()
	}

	v := s.deps.Market.Current()
	res := market.Render(v, "", market.ViewHome, wl)
	return c.JSON(http.StatusOK, makeResponse(v, res, "", wl))
}

// GetWatchlist - вкладка watchlist текущего пользователя
func (s *Server) GetWatchlist(c echo.Context) error {
	s.deps.Trigger.Trigger()

	sess := sessionFrom(c)
	q := c.QueryParam("q")

	// если чтение при входе не удалось, вкладка повторяет его
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()
	if err := sess.Watchlist.Load(ctx); err != nil {
		s.logger.Debug("watchlist still not loaded", slog.String("user_id", sess.User.ID), slog.Any("err", err))
	}
	wl := sess.Watchlist.Set()

	v := s.deps.Market.Current()
	res := market.Render(v, q, market.ViewWatchlist, wl)
	out := makeResponse(v, res, q, wl).(ListResponse)
	out.Notice = sess.Watchlist.Notice()
	return c.JSON(http.StatusOK, out)
}
