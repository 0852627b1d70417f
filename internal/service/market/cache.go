package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
)

// View - неизменяемое состояние кэша, которое видят читатели.
// После публикации ни одно поле не модифицируется.
type View struct {
	Snapshot   domain.Snapshot
	Directions map[string]domain.Direction
	LastError  error
	FailedAt   time.Time
	Version    uint64
}

// Stale - последний запрос упал, показываем прошлый снимок
func (v *View) Stale() bool {
	return v.LastError != nil
}

// Direction - направление цены монеты, Unchanged если монета неизвестна
func (v *View) Direction(id string) domain.Direction {
	return v.Directions[id]
}

// Cache - последний снимок рынка и память цен.
// Писатель один (планировщик), читатели берут View через атомарный указатель.
type Cache struct {
	mu      sync.Mutex // сериализует писателей
	memory  domain.PriceMemory
	current atomic.Pointer[View]
}

func NewCache() *Cache {
	c := &Cache{memory: domain.PriceMemory{}}
	c.current.Store(&View{Directions: map[string]domain.Direction{}})
	return c
}

// Load - текущее состояние, никогда не nil
func (c *Cache) Load() *View {
	return c.current.Load()
}

// Apply - заменяет снимок целиком и пересчитывает направления.
// Если ctx уже отменён, результат отбрасывается и возвращается false.
func (c *Cache) Apply(ctx context.Context, snap domain.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}

	directions, next := Classify(c.memory, snap.Coins)
	prev := c.current.Load()
	c.memory = next
	c.current.Store(&View{
		Snapshot:   snap,
		Directions: directions,
		Version:    prev.Version + 1,
	})
	return true
}

// MarkFailed - оставляет прошлый снимок и поднимает флаг ошибки
func (c *Cache) MarkFailed(ctx context.Context, err error, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}

	prev := c.current.Load()
	c.current.Store(&View{
		Snapshot:   prev.Snapshot,
		Directions: prev.Directions,
		LastError:  err,
		FailedAt:   at,
		Version:    prev.Version + 1,
	})
	return true
}

// Memory - копия памяти цен (для тестов и диагностики)
func (c *Cache) Memory() domain.PriceMemory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(domain.PriceMemory, len(c.memory))
	for k, v := range c.memory {
		out[k] = v
	}
	return out
}
