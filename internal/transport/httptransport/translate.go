package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/ports/errcode"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/auth"
	"github.com/labstack/echo/v4"
)

func FromServiceError(err error) errcode.Code {
	switch {
	case errors.Is(err, derrors.ErrSessionNotFound):
		return errcode.Unauthorized
	case errors.Is(err, derrors.ErrAuth):
		return errcode.AuthFailed
	case errors.Is(err, derrors.ErrWatchlistNotLoaded):
		return errcode.WatchlistLoading
	case errors.Is(err, derrors.ErrWatchlistSync):
		return errcode.WatchlistSync
	case errors.Is(err, derrors.ErrUnknownCoin):
		return errcode.UnknownCoin
	case errors.Is(err, derrors.ErrNoData):
		return errcode.NoData
	case errors.Is(err, derrors.ErrFetchFailed):
		return errcode.FetchFailed
	default:
		return errcode.Internal
	}
}

// statusFor - HTTP статус для кода ошибки
func statusFor(code errcode.Code, err error) int {
	switch code {
	case errcode.Unauthorized:
		return http.StatusUnauthorized
	case errcode.AuthFailed:
		return authStatus(err)
	case errcode.WatchlistLoading:
		return http.StatusConflict
	case errcode.UnknownCoin:
		return http.StatusNotFound
	case errcode.NoData:
		return http.StatusServiceUnavailable
	case errcode.FetchFailed, errcode.WatchlistSync:
		return http.StatusBadGateway
	case errcode.BadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func authStatus(err error) int {
	var ae *derrors.AuthError
	if !errors.As(err, &ae) {
		return http.StatusBadRequest
	}
	switch ae.Reason {
	case auth.ReasonInvalidCredentials:
		return http.StatusUnauthorized
	case auth.ReasonEmailInUse:
		return http.StatusConflict
	case auth.ReasonUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// errorBody - JSON ответа с ошибкой; для AuthError добавляется причина
func errorBody(code errcode.Code, err error) echo.Map {
	body := echo.Map{"error": code}
	var ae *derrors.AuthError
	if errors.As(err, &ae) {
		body["message"] = ae.Reason
	}
	return body
}

// respondError - общий выход для ошибок сервисов
func (s *Server) respondError(c echo.Context, op string, err error) error {
	code := FromServiceError(err)
	status := statusFor(code, err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("op", op),
			slog.String("code", string(code)),
			slog.Any("err", err),
		)
	}
	return c.JSON(status, errorBody(code, err))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":   errcode.BadRequest,
		"message": msg,
	})
}
