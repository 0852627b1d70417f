package httptransport

import (
	"strings"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/labstack/echo/v4"
)

const sessionKey = "session"

// bearerToken - токен из Authorization: Bearer или из ?token= (браузерный WebSocket не шлёт заголовки)
func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return c.QueryParam("token")
}

func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tok := bearerToken(c)
		if tok == "" {
			return s.respondError(c, "auth", derrors.ErrSessionNotFound)
		}
		sess, err := s.deps.Sessions.Get(tok)
		if err != nil {
			return s.respondError(c, "auth", err)
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

func sessionFrom(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionKey).(*session.Session)
	return sess
}

// optionalSession - сессия, если токен передан и действителен
func (s *Server) optionalSession(c echo.Context) *session.Session {
	tok := bearerToken(c)
	if tok == "" {
		return nil
	}
	sess, err := s.deps.Sessions.Get(tok)
	if err != nil {
		return nil
	}
	return sess
}
