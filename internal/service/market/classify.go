package market

import "github.com/NastyaGoryachaya/crypto-tracker/internal/domain"

// Classify - сравнивает новые цены с памятью прошлого обновления.
// Возвращает направление для каждой монеты и новую память; входная память не меняется.
// Монеты, которых нет в новом снимке, сохраняют старые записи.
func Classify(memory domain.PriceMemory, coins []domain.Coin) (map[string]domain.Direction, domain.PriceMemory) {
	directions := make(map[string]domain.Direction, len(coins))
	next := make(domain.PriceMemory, len(memory)+len(coins))
	for id, p := range memory {
		next[id] = p
	}

	for _, c := range coins {
		prev, ok := memory[c.ID]
		switch {
		case !ok:
			directions[c.ID] = domain.Unchanged
		case c.Price.GreaterThan(prev):
			directions[c.ID] = domain.Up
		case c.Price.LessThan(prev):
			directions[c.ID] = domain.Down
		default:
			directions[c.ID] = domain.Unchanged
		}
		next[c.ID] = c.Price
	}
	return directions, next
}
