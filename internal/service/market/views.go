package market

import (
	"slices"
	"strings"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// ViewKind - вкладка, для которой строится список
type ViewKind string

const (
	ViewHome      ViewKind = "home"
	ViewMarkets   ViewKind = "markets"
	ViewWatchlist ViewKind = "watchlist"
)

const (
	gainersLimit  = 5
	losersLimit   = 5
	trendingLimit = 6
)

// Row - монета вместе с направлением цены
type Row struct {
	Coin      domain.Coin
	Direction domain.Direction
}

// Overview - данные для главной вкладки
type Overview struct {
	Gainers        []Row
	Losers         []Row
	Trending       []Row
	TotalMarketCap decimal.Decimal
	TotalVolume    decimal.Decimal
	Count          int
	NoData         bool
}

// Result - производное представление для одной вкладки
type Result struct {
	Kind     ViewKind
	Rows     []Row     // markets / watchlist
	Overview *Overview // home
	NoData   bool
}

// Render - чистая функция: (снимок, поиск, вкладка, watchlist) -> что показать
func Render(v *View, query string, kind ViewKind, watchlist map[string]struct{}) Result {
	switch kind {
	case ViewHome:
		ov := BuildOverview(v)
		return Result{Kind: kind, Overview: &ov, NoData: ov.NoData}
	case ViewWatchlist:
		return Result{Kind: kind, Rows: FilterWatchlist(v, query, watchlist), NoData: v.Snapshot.Empty()}
	default:
		return Result{Kind: ViewMarkets, Rows: FilterMarkets(v, query), NoData: v.Snapshot.Empty()}
	}
}

// FilterMarkets - монеты, у которых имя или символ содержат query (без учёта регистра).
// Порядок снимка сохраняется.
func FilterMarkets(v *View, query string) []Row {
	return filter(v, query, nil)
}

// FilterWatchlist - то же, но только монеты из watchlist
func FilterWatchlist(v *View, query string, watchlist map[string]struct{}) []Row {
	if len(watchlist) == 0 {
		return []Row{}
	}
	return filter(v, query, func(c domain.Coin) bool {
		_, ok := watchlist[c.ID]
		return ok
	})
}

func filter(v *View, query string, keep func(domain.Coin) bool) []Row {
	q := strings.ToLower(query)
	out := make([]Row, 0, len(v.Snapshot.Coins))
	for _, c := range v.Snapshot.Coins {
		if keep != nil && !keep(c) {
			continue
		}
		if q != "" && !matches(c, q) {
			continue
		}
		out = append(out, Row{Coin: c, Direction: v.Direction(c.ID)})
	}
	return out
}

func matches(c domain.Coin, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Symbol), q)
}

// BuildOverview - лидеры роста и падения, тренды по рангу и итоги по всему снимку
func BuildOverview(v *View) Overview {
	coins := v.Snapshot.Coins
	if len(coins) == 0 {
		return Overview{
			Gainers:  []Row{},
			Losers:   []Row{},
			Trending: []Row{},
			NoData:   true,
		}
	}

	ov := Overview{Count: len(coins)}
	for _, c := range coins {
		ov.TotalMarketCap = ov.TotalMarketCap.Add(c.MarketCap)
		ov.TotalVolume = ov.TotalVolume.Add(c.Volume24h)
	}

	gainers := slices.Clone(coins)
	slices.SortStableFunc(gainers, func(a, b domain.Coin) int {
		return b.Change24hPct.Cmp(a.Change24hPct)
	})
	losers := slices.Clone(coins)
	slices.SortStableFunc(losers, func(a, b domain.Coin) int {
		return a.Change24hPct.Cmp(b.Change24hPct)
	})
	trending := slices.Clone(coins)
	slices.SortStableFunc(trending, func(a, b domain.Coin) int {
		return a.Rank - b.Rank
	})

	ov.Gainers = toRows(v, gainers, gainersLimit)
	ov.Losers = toRows(v, losers, losersLimit)
	ov.Trending = toRows(v, trending, trendingLimit)
	return ov
}

// Find - монета из снимка для детального просмотра
func Find(v *View, id string) (Row, bool) {
	for _, c := range v.Snapshot.Coins {
		if c.ID == id {
			return Row{Coin: c, Direction: v.Direction(c.ID)}, true
		}
	}
	return Row{}, false
}

func toRows(v *View, coins []domain.Coin, limit int) []Row {
	n := min(limit, len(coins))
	out := make([]Row, 0, n)
	for _, c := range coins[:n] {
		out = append(out, Row{Coin: c, Direction: v.Direction(c.ID)})
	}
	return out
}
