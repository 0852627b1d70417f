package api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/shopspring/decimal"
)

const (
	// maxPerPage - ограничение CoinGecko на размер страницы
	maxPerPage = 250
	// maxBodySize - защита от слишком большого ответа
	maxBodySize = 16 << 20

	defaultUserAgent = "crypto-tracker/1.0 (+https://github.com/NastyaGoryachaya/crypto-tracker)"
)

// Config - параметры запроса к /coins/markets
type Config struct {
	BaseURL          string
	APIKey           string
	Currency         string
	PerPage          int
	Page             int
	IncludeSparkline bool
	Timeout          time.Duration
	UserAgent        string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// marketItem - структура для парсинга ответа API CoinGecko.
// Указатели нужны, чтобы отличить null/отсутствие поля от нуля.
type marketItem struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	MarketCap     *decimal.Decimal `json:"market_cap"`
	MarketCapRank *int             `json:"market_cap_rank"`
	TotalVolume   *decimal.Decimal `json:"total_volume"`
	Change24hPct  *decimal.Decimal `json:"price_change_percentage_24h"`
	ATH           *decimal.Decimal `json:"ath"`
	Circulating   *decimal.Decimal `json:"circulating_supply"`
	TotalSupply   *decimal.Decimal `json:"total_supply"`
	MaxSupply     *decimal.Decimal `json:"max_supply"`
	Sparkline     *struct {
		Price []decimal.Decimal `json:"price"`
	} `json:"sparkline_in_7d"`
}

// NewClient - Создаёт нового клиента для работы с API CoinGecko.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PerPage <= 0 || cfg.PerPage > maxPerPage {
		cfg.PerPage = maxPerPage
	}
	if cfg.Page <= 0 {
		cfg.Page = 1
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FetchSnapshot - получает одну страницу рынка и собирает из неё снимок.
// Любая ошибка (сеть, статус, разбор) оборачивает ErrFetchFailed.
func (c *Client) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	u, err := c.buildURL()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: invalid base URL: %w", derrors.ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: creating request: %w", derrors.ErrFetchFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: request failed: %w", derrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return domain.Snapshot{}, fmt.Errorf("%w: request failed: %s", derrors.ErrFetchFailed, resp.Status)
	}

	var data []marketItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&data); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: decoding response: %w", derrors.ErrFetchFailed, err)
	}

	coins, err := c.toCoins(data)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Coins: coins, FetchedAt: c.now()}, nil
}

func (c *Client) buildURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q has no scheme or host", c.cfg.BaseURL)
	}
	u = u.JoinPath("coins", "markets")

	q := u.Query()
	q.Set("vs_currency", strings.ToLower(c.cfg.Currency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(c.cfg.Page))
	q.Set("sparkline", strconv.FormatBool(c.cfg.IncludeSparkline))
	q.Set("price_change_percentage", "24h")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// toCoins - проверка обязательных полей и перевод в доменную модель
func (c *Client) toCoins(data []marketItem) ([]domain.Coin, error) {
	coins := make([]domain.Coin, 0, len(data))
	seen := make(map[string]struct{}, len(data))
	for i, d := range data {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: item %d: missing id", derrors.ErrFetchFailed, i)
		}
		if d.CurrentPrice == nil || d.MarketCap == nil || d.MarketCapRank == nil {
			return nil, fmt.Errorf("%w: coin %q: missing required numeric field", derrors.ErrFetchFailed, d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			c.logger.Warn("duplicate coin id in provider response", slog.String("id", d.ID))
			continue
		}
		seen[d.ID] = struct{}{}

		coin := domain.Coin{
			ID:        d.ID,
			Name:      d.Name,
			Symbol:    strings.ToUpper(d.Symbol),
			Image:     d.Image,
			Price:     *d.CurrentPrice,
			MarketCap: *d.MarketCap,
			Rank:      *d.MarketCapRank,
		}
		// total_volume и изменение за 24ч бывают null у молодых монет
		if d.TotalVolume != nil {
			coin.Volume24h = *d.TotalVolume
		}
		if d.Change24hPct != nil {
			coin.Change24hPct = *d.Change24hPct
		}
		coin.ATH = nullable(d.ATH)
		coin.CirculatingSupply = nullable(d.Circulating)
		coin.TotalSupply = nullable(d.TotalSupply)
		coin.MaxSupply = nullable(d.MaxSupply)
		if d.Sparkline != nil && len(d.Sparkline.Price) > 0 {
			coin.Sparkline = d.Sparkline.Price
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}
