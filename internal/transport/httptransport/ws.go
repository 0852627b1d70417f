package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsReadLimit    = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func parseViewKind(s string) (market.ViewKind, bool) {
	switch market.ViewKind(strings.ToLower(s)) {
	case "", market.ViewMarkets:
		return market.ViewMarkets, true
	case market.ViewHome:
		return market.ViewHome, true
	case market.ViewWatchlist:
		return market.ViewWatchlist, true
	default:
		return "", false
	}
}

// Stream - GET /ws?view=markets|watchlist|home&q=
// Шлёт текущий вид сразу и затем после каждого обновления кэша.
func (s *Server) Stream(c echo.Context) error {
	kind, ok := parseViewKind(c.QueryParam("view"))
	if !ok {
		return badRequest(c, "view must be one of markets, watchlist, home")
	}
	q := c.QueryParam("q")

	sess := s.optionalSession(c)
	if kind == market.ViewWatchlist && sess == nil {
		return s.respondError(c, "Stream", derrors.ErrSessionNotFound)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.logger.Debug("websocket upgrade failed", slog.Any("err", err))
		return nil
	}
	s.deps.WS.WSConnected()
	defer s.deps.WS.WSDisconnected()

	if kind != market.ViewHome {
		s.deps.Trigger.Trigger()
	}

	// в буфере только самый свежий вид
	updates := make(chan *market.View, 1)
	unsubscribe := s.deps.Market.OnUpdate(func(v *market.View) {
		select {
		case updates <- v:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- v:
			default:
			}
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	s.writePump(conn, closed, updates, kind, q, sess)
	return nil
}

// readPump - читает только служебные кадры, чтобы заметить закрытие
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, closed <-chan struct{}, updates <-chan *market.View,
	kind market.ViewKind, q string, sess *session.Session) {
	defer conn.Close()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	send := func(v *market.View) bool {
		var wl map[string]struct{}
		if sess != nil {
			wl = sess.Watchlist.Set()
		}
		res := market.Render(v, q, kind, wl)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(makeResponse(v, res, q, wl)); err != nil {
			s.logger.Debug("websocket write failed", slog.Any("err", err))
			return false
		}
		return true
	}

	if !send(s.deps.Market.Current()) {
		return
	}
	for {
		select {
		case v := <-updates:
			if !send(v) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
