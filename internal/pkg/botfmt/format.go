package botfmt

import (
	"fmt"
	"strings"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/market"
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	trillion = decimal.NewFromInt(1_000_000_000_000)
)

// arrow - подсветка направления цены
func arrow(d domain.Direction) string {
	switch d {
	case domain.Up:
		return "▲"
	case domain.Down:
		return "▼"
	default:
		return "•"
	}
}

// FormatCoinLine - короткая строка для списков
func FormatCoinLine(r market.Row) string {
	return fmt.Sprintf("%s #%d %s | $%s | %s%%",
		arrow(r.Direction),
		r.Coin.Rank,
		r.Coin.Symbol,
		HumanPrice(r.Coin.Price),
		signed(r.Coin.Change24hPct),
	)
}

// FormatList - не больше limit строк и хвост "ещё N"
func FormatList(title string, rows []market.Row, limit int) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	n := len(rows)
	if limit > 0 && n > limit {
		n = limit
	}
	for _, r := range rows[:n] {
		b.WriteString(FormatCoinLine(r))
		b.WriteByte('\n')
	}
	if rest := len(rows) - n; rest > 0 {
		fmt.Fprintf(&b, "…и ещё %d\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatOverview - сообщение для /top
func FormatOverview(ov market.Overview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Капитализация рынка: $%s\nОбъём за 24ч: $%s\nМонет: %d\n\n",
		HumanAmount(ov.TotalMarketCap), HumanAmount(ov.TotalVolume), ov.Count)
	section := func(title string, rows []market.Row) {
		b.WriteString(title)
		b.WriteByte('\n')
		for _, r := range rows {
			b.WriteString(FormatCoinLine(r))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	section("🚀 Лидеры роста", ov.Gainers)
	section("📉 Лидеры падения", ov.Losers)
	section("🔥 В тренде", ov.Trending)
	return strings.TrimRight(b.String(), "\n")
}

// FormatCoinDetails - карточка монеты для /coin
func FormatCoinDetails(r market.Row) string {
	c := r.Coin
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s) #%d\n", arrow(r.Direction), c.Name, c.Symbol, c.Rank)
	fmt.Fprintf(&b, "Цена: $%s (%s%% за 24ч)\n", HumanPrice(c.Price), signed(c.Change24hPct))
	fmt.Fprintf(&b, "Капитализация: $%s\n", HumanAmount(c.MarketCap))
	fmt.Fprintf(&b, "Объём за 24ч: $%s\n", HumanAmount(c.Volume24h))
	fmt.Fprintf(&b, "Исторический максимум: %s\n", optional(c.ATH, func(v decimal.Decimal) string { return "$" + HumanPrice(v) }))
	fmt.Fprintf(&b, "В обращении: %s\n", optional(c.CirculatingSupply, HumanAmount))
	fmt.Fprintf(&b, "Всего выпущено: %s\n", optional(c.TotalSupply, HumanAmount))
	fmt.Fprintf(&b, "Максимальный выпуск: %s", optional(c.MaxSupply, HumanAmount))
	return b.String()
}

func optional(v decimal.NullDecimal, format func(decimal.Decimal) string) string {
	if !v.Valid {
		return "нет данных"
	}
	return format(v.Decimal)
}

// StaleNote - приписка, если последний запрос к провайдеру упал
func StaleNote(v *market.View) string {
	if !v.Stale() {
		return ""
	}
	return fmt.Sprintf("\n\n⚠️ Данные могут быть устаревшими: последнее обновление не удалось (%s)",
		v.FailedAt.Format("15:04:05"))
}

// HumanPrice - два знака для цен от 1, иначе до 8 значащих знаков после запятой
func HumanPrice(v decimal.Decimal) string {
	if v.Abs().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return v.StringFixed(2)
	}
	return v.Round(8).String()
}

// HumanAmount - 1.23T / 4.56B / 7.89M / 1.2K
func HumanAmount(v decimal.Decimal) string {
	switch abs := v.Abs(); {
	case abs.GreaterThanOrEqual(trillion):
		return v.Div(trillion).StringFixed(2) + "T"
	case abs.GreaterThanOrEqual(billion):
		return v.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(1) + "K"
	default:
		return v.StringFixed(2)
	}
}

func signed(v decimal.Decimal) string {
	s := v.StringFixed(2)
	if v.IsPositive() {
		return "+" + s
	}
	return s
}
