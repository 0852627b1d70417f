package consts

// PopularSymbols - "популярные" монеты, если в конфиге список не задан
var PopularSymbols = []string{
	"BTC", "ETH", "USDT", "LTC", "BNB", "SOL",
	"DOGE", "MATIC", "TRX", "USDC", "BUSD", "BCH",
}
