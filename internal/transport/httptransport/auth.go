package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/session"
	"github.com/labstack/echo/v4"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// bind - разбор JSON и проверка тегов validate
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid JSON body")
	}
	return c.Validate(req)
}

func makeSession(sess *session.Session) SessionResponse {
	return SessionResponse{
		Token:     sess.Token,
		UserID:    sess.User.ID,
		Email:     sess.User.Email,
		Watchlist: sess.Watchlist.IDs(),
		Notice:    sess.Watchlist.Notice(),
		CreatedAt: sess.CreatedAt,
	}
}

func (s *Server) Register(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	sess, err := s.deps.Sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		return s.respondError(c, "Register", err)
	}
	return c.JSON(http.StatusCreated, makeSession(sess))
}

func (s *Server) Login(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	sess, err := s.deps.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return s.respondError(c, "Login", err)
	}
	return c.JSON(http.StatusOK, makeSession(sess))
}

func (s *Server) Logout(c echo.Context) error {
	sess := sessionFrom(c)
	if err := s.deps.Sessions.Logout(sess.Token); err != nil {
		return s.respondError(c, "Logout", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset - ответ одинаковый для известных и неизвестных email
func (s *Server) RequestPasswordReset(c echo.Context) error {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	if err := s.deps.Auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return s.respondError(c, "RequestPasswordReset", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "reset_requested"})
}

func (s *Server) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	userID, err := s.deps.Auth.ResetPassword(ctx, req.Token, req.NewPassword)
	if err != nil {
		return s.respondError(c, "ConfirmPasswordReset", err)
	}
	// старый пароль больше не действует, и открытые с ним сессии тоже
	s.deps.Sessions.LogoutUser(userID)
	return c.JSON(http.StatusOK, echo.Map{"status": "password_updated"})
}
