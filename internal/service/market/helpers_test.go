package market

import (
	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

func coin(id, name, sym string, price, change float64, rank int) domain.Coin {
	return domain.Coin{
		ID:           id,
		Name:         name,
		Symbol:       sym,
		Price:        decimal.NewFromFloat(price),
		Change24hPct: decimal.NewFromFloat(change),
		MarketCap:    decimal.NewFromInt(int64(1000 - rank)),
		Volume24h:    decimal.NewFromInt(10),
		Rank:         rank,
	}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Coin.ID)
	}
	return out
}

func sampleCoins() []domain.Coin {
	return []domain.Coin{
		coin("bitcoin", "Bitcoin", "BTC", 50000, 2.5, 1),
		coin("ethereum", "Ethereum", "ETH", 3000, -1.2, 2),
		coin("tether", "Tether", "USDT", 1, 0, 3),
		coin("solana", "Solana", "SOL", 150, 8.1, 5),
		coin("binancecoin", "BNB", "BNB", 600, 1.1, 4),
		coin("ripple", "XRP", "XRP", 0.5, -4.3, 6),
		coin("cardano", "Cardano", "ADA", 0.4, -0.7, 8),
		coin("dogecoin", "Dogecoin", "DOGE", 0.1, 12.0, 7),
	}
}

func idsOf(coins []domain.Coin) []string {
	out := make([]string, 0, len(coins))
	for _, c := range coins {
		out = append(out, c.ID)
	}
	return out
}
