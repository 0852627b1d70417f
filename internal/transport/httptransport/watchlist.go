package httptransport

import (
	"net/http"
	"strings"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/labstack/echo/v4"
)

func coinID(c echo.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("id")))
}

// knownCoin - добавлять можно только монеты из текущего снимка
func (s *Server) knownCoin(id string) error {
	if s.deps.Market.Current().Snapshot.Empty() {
		return derrors.ErrNoData
	}
	if !s.deps.Market.Has(id) {
		return derrors.ErrUnknownCoin
	}
	return nil
}

func watchlistResponse(sess *session.Session, id string) WatchlistResponse {
	return WatchlistResponse{
		ID:          id,
		InWatchlist: sess.Watchlist.Contains(id),
		Watchlist:   sess.Watchlist.IDs(),
		Notice:      sess.Watchlist.Notice(),
	}
}

// ToggleWatchlist - звёздочка в списке
func (s *Server) ToggleWatchlist(c echo.Context) error {
	sess := sessionFrom(c)
	id := coinID(c)
	if id == "" {
		return badRequest(c, "coin id required")
	}
	if !sess.Watchlist.Contains(id) {
		if err := s.knownCoin(id); err != nil {
			return s.respondError(c, "ToggleWatchlist", err)
		}
	}
	if _, err := sess.Watchlist.Toggle(id); err != nil {
		return s.respondError(c, "ToggleWatchlist", err)
	}
	return c.JSON(http.StatusOK, watchlistResponse(sess, id))
}

func (s *Server) AddToWatchlist(c echo.Context) error {
	sess := sessionFrom(c)
	id := coinID(c)
	if id == "" {
		return badRequest(c, "coin id required")
	}
	if err := s.knownCoin(id); err != nil {
		return s.respondError(c, "AddToWatchlist", err)
	}
	if err := sess.Watchlist.Add(id); err != nil {
		return s.respondError(c, "AddToWatchlist", err)
	}
	return c.JSON(http.StatusOK, watchlistResponse(sess, id))
}

// RemoveFromWatchlist - удалить можно и монету, которой уже нет в снимке
func (s *Server) RemoveFromWatchlist(c echo.Context) error {
	sess := sessionFrom(c)
	id := coinID(c)
	if id == "" {
		return badRequest(c, "coin id required")
	}
	if err := sess.Watchlist.Remove(id); err != nil {
		return s.respondError(c, "RemoveFromWatchlist", err)
	}
	return c.JSON(http.StatusOK, watchlistResponse(sess, id))
}
