package errcode

type Code string

const (
	NoData      Code = "NO_DATA"
	FetchFailed Code = "FETCH_FAILED"

	Unauthorized     Code = "UNAUTHORIZED"
	AuthFailed       Code = "AUTH_FAILED"
	WatchlistLoading Code = "WATCHLIST_LOADING"
	WatchlistSync    Code = "WATCHLIST_SYNC"
	UnknownCoin      Code = "UNKNOWN_COIN"

	BadRequest Code = "BAD_REQUEST"
	Internal   Code = "INTERNAL_ERROR"
)
