package errors

import "errors"

var (
	// ErrFetchFailed - сеть, не-2xx ответ или битый payload от провайдера котировок
	ErrFetchFailed = errors.New("market data fetch failed")
	// ErrWatchlistSync - не удалось прочитать или записать watchlist во внешнее хранилище
	ErrWatchlistSync = errors.New("watchlist sync failed")
	// ErrWatchlistNotLoaded - мутация до окончания загрузки watchlist
	ErrWatchlistNotLoaded = errors.New("watchlist is not loaded yet")
	// ErrSessionNotFound - сессия не найдена или истекла
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoData - снимок рынка ещё не получен
	ErrNoData = errors.New("no market data")
	// ErrUnknownCoin - монеты нет в текущем снимке
	ErrUnknownCoin = errors.New("unknown coin")
	// ErrAuth - общий маркер для AuthError, удобен для errors.Is
	ErrAuth = errors.New("auth error")
)

// AuthError - ошибка провайдера идентификации с человекочитаемой причиной
type AuthError struct {
	Reason string
	Err    error
}

func NewAuthError(reason string, cause error) *AuthError {
	return &AuthError{Reason: reason, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth: " + e.Reason + ": " + e.Err.Error()
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is - любой AuthError совпадает с ErrAuth
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}
