package market

import (
	"fmt"
	"strings"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
)

// ListPolicy - как обращаться с "популярными" символами
type ListPolicy string

const (
	// PolicyAll - весь список в порядке провайдера
	PolicyAll ListPolicy = "all"
	// PolicyPrioritize - популярные монеты сверху, остальные ниже
	PolicyPrioritize ListPolicy = "prioritize"
	// PolicyRestrict - только популярные монеты, в порядке списка
	PolicyRestrict ListPolicy = "restrict"
)

func ParseListPolicy(s string) (ListPolicy, error) {
	switch p := ListPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAll:
		return PolicyAll, nil
	case PolicyPrioritize, PolicyRestrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown list policy %q", s)
	}
}

// ApplyPolicy - возвращает новый срез, входной не меняется
func ApplyPolicy(policy ListPolicy, popular []string, coins []domain.Coin) []domain.Coin {
	if policy == PolicyAll || policy == "" || len(popular) == 0 {
		return coins
	}

	index := make(map[string]int, len(popular))
	for i, s := range popular {
		sym := strings.ToUpper(s)
		if _, ok := index[sym]; !ok {
			index[sym] = i
		}
	}

	switch policy {
	case PolicyPrioritize:
		out := make([]domain.Coin, 0, len(coins))
		for _, c := range coins {
			if _, ok := index[c.Symbol]; ok {
				out = append(out, c)
			}
		}
		for _, c := range coins {
			if _, ok := index[c.Symbol]; !ok {
				out = append(out, c)
			}
		}
		return out
	case PolicyRestrict:
		// несколько монет с одним символом встают по порядку провайдера
		buckets := make([][]domain.Coin, len(popular))
		for _, c := range coins {
			if i, ok := index[c.Symbol]; ok {
				buckets[i] = append(buckets[i], c)
			}
		}
		out := make([]domain.Coin, 0, len(coins))
		for _, b := range buckets {
			out = append(out, b...)
		}
		// ни одного совпадения - показываем весь список, а не пустой экран
		if len(out) == 0 {
			return coins
		}
		return out
	default:
		return coins
	}
}
