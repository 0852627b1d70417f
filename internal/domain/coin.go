package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coin - монета из снимка рынка
type Coin struct {
	ID           string            `json:"id"`     // bitcoin, ethereum
	Name         string            `json:"name"`   // Bitcoin
	Symbol       string            `json:"symbol"` // BTC
	Image        string            `json:"image"`
	Price        decimal.Decimal   `json:"price"`
	Change24hPct decimal.Decimal   `json:"change_24h_pct"`
	MarketCap    decimal.Decimal   `json:"market_cap"`
	Volume24h    decimal.Decimal   `json:"volume_24h"`
	Rank         int               `json:"rank"`
	Sparkline    []decimal.Decimal `json:"sparkline,omitempty"` // последний элемент - самый свежий

	// детали монеты; у части монет провайдер их не знает
	ATH               decimal.NullDecimal `json:"ath"`
	CirculatingSupply decimal.NullDecimal `json:"circulating_supply"`
	TotalSupply       decimal.NullDecimal `json:"total_supply"`
	MaxSupply         decimal.NullDecimal `json:"max_supply"`
}

// Snapshot - результат одного успешного запроса к провайдеру
type Snapshot struct {
	Coins     []Coin    `json:"coins"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Empty - в снимке нет ни одной монеты
func (s Snapshot) Empty() bool {
	return len(s.Coins) == 0
}

// Direction - движение цены относительно предыдущего обновления
type Direction int

const (
	Unchanged Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unchanged"
	}
}

// PriceMemory - цена каждой монеты на момент предыдущего успешного обновления
type PriceMemory map[string]decimal.Decimal
