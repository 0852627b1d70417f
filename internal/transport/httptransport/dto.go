package httptransport

import (
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/shopspring/decimal"
)

// Coin - DTO строки списка. Числа сериализуются строками без потери точности.
type Coin struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Symbol       string            `json:"symbol"`
	Image        string            `json:"image,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	Change24hPct decimal.Decimal   `json:"change_24h_pct"`
	MarketCap    decimal.Decimal   `json:"market_cap"`
	Volume24h    decimal.Decimal   `json:"volume_24h"`
	Rank         int               `json:"rank"`
	Sparkline    []decimal.Decimal `json:"sparkline,omitempty"`
	Direction    string            `json:"direction"`
	InWatchlist  *bool             `json:"in_watchlist,omitempty"`
}

// CoinDetail - строка списка плюс детали монеты
type CoinDetail struct {
	Coin
	ATH               decimal.NullDecimal `json:"ath"`
	CirculatingSupply decimal.NullDecimal `json:"circulating_supply"`
	TotalSupply       decimal.NullDecimal `json:"total_supply"`
	MaxSupply         decimal.NullDecimal `json:"max_supply"`
}

// DetailResponse - ответ GET /markets/:id
type DetailResponse struct {
	Meta
	Coin CoinDetail `json:"coin"`
}

// Meta - общее состояние снимка для всех ответов
type Meta struct {
	NoData    bool       `json:"no_data"`
	Stale     bool       `json:"stale"`
	Error     string     `json:"error,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	FailedAt  *time.Time `json:"failed_at,omitempty"`
	Version   uint64     `json:"version"`
}

// ListResponse - ответ вкладок markets и watchlist
type ListResponse struct {
	Meta
	View   string `json:"view"`
	Query  string `json:"query,omitempty"`
	Count  int    `json:"count"`
	Coins  []Coin `json:"coins"`
	Notice string `json:"notice,omitempty"`
}

// OverviewResponse - ответ главной вкладки
type OverviewResponse struct {
	Meta
	View           string          `json:"view"`
	Gainers        []Coin          `json:"gainers"`
	Losers         []Coin          `json:"losers"`
	Trending       []Coin          `json:"trending"`
	TotalMarketCap decimal.Decimal `json:"total_market_cap"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	Count          int             `json:"count"`
}

// WatchlistResponse - ответ на изменение watchlist
type WatchlistResponse struct {
	ID          string   `json:"id,omitempty"`
	InWatchlist bool     `json:"in_watchlist"`
	Watchlist   []string `json:"watchlist"`
	Notice      string   `json:"notice,omitempty"`
}

// SessionResponse - ответ на вход и регистрацию
type SessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Watchlist []string  `json:"watchlist"`
	Notice    string    `json:"notice,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func makeMeta(v *market.View) Meta {
	m := Meta{
		NoData:  v.Snapshot.Empty(),
		Stale:   v.Stale(),
		Version: v.Version,
	}
	if !v.Snapshot.FetchedAt.IsZero() {
		t := v.Snapshot.FetchedAt
		m.FetchedAt = &t
	}
	if v.LastError != nil {
		m.Error = v.LastError.Error()
		t := v.FailedAt
		m.FailedAt = &t
	}
	return m
}

func makeCoin(r market.Row, watchlist map[string]struct{}) Coin {
	c := Coin{
		ID:           r.Coin.ID,
		Name:         r.Coin.Name,
		Symbol:       r.Coin.Symbol,
		Image:        r.Coin.Image,
		Price:        r.Coin.Price,
		Change24hPct: r.Coin.Change24hPct,
		MarketCap:    r.Coin.MarketCap,
		Volume24h:    r.Coin.Volume24h,
		Rank:         r.Coin.Rank,
		Sparkline:    r.Coin.Sparkline,
		Direction:    r.Direction.String(),
	}
	// флаг только для вошедших пользователей
	if watchlist != nil {
		_, ok := watchlist[r.Coin.ID]
		c.InWatchlist = &ok
	}
	return c
}

func makeCoins(rows []market.Row, watchlist map[string]struct{}) []Coin {
	out := make([]Coin, 0, len(rows))
	for _, r := range rows {
		out = append(out, makeCoin(r, watchlist))
	}
	return out
}

// makeResponse - DTO для любого вида; используется и HTTP, и WebSocket
func makeResponse(v *market.View, res market.Result, query string, watchlist map[string]struct{}) any {
	meta := makeMeta(v)
	if res.Kind == market.ViewHome {
		ov := res.Overview
		return OverviewResponse{
			Meta:           meta,
			View:           string(res.Kind),
			Gainers:        makeCoins(ov.Gainers, watchlist),
			Losers:         makeCoins(ov.Losers, watchlist),
			Trending:       makeCoins(ov.Trending, watchlist),
			TotalMarketCap: ov.TotalMarketCap,
			TotalVolume:    ov.TotalVolume,
			Count:          ov.Count,
		}
	}
	return ListResponse{
		Meta:  meta,
		View:  string(res.Kind),
		Query: query,
		Count: len(res.Rows),
		Coins: makeCoins(res.Rows, watchlist),
	}
}

func makeDetail(r market.Row, watchlist map[string]struct{}) CoinDetail {
	return CoinDetail{
		Coin:              makeCoin(r, watchlist),
		ATH:               r.Coin.ATH,
		CirculatingSupply: r.Coin.CirculatingSupply,
		TotalSupply:       r.Coin.TotalSupply,
		MaxSupply:         r.Coin.MaxSupply,
	}
}
