package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WatchlistRepo struct {
	db *pgxpool.Pool
}

func NewWatchlistRepo(db *pgxpool.Pool) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

// Load - набор монет пользователя; нет строки - пустой набор
func (r *WatchlistRepo) Load(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT coin_ids FROM watchlists WHERE user_id = $1`

	var ids []string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&ids); err != nil {
		if isNotFoundError(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Save - полная перезапись набора
func (r *WatchlistRepo) Save(ctx context.Context, userID string, ids []string) error {
	const query = `
	INSERT INTO watchlists (user_id, coin_ids, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (user_id)
	DO UPDATE SET coin_ids = EXCLUDED.coin_ids,
	              updated_at = EXCLUDED.updated_at`

	if ids == nil {
		ids = []string{}
	}
	if _, err := r.db.Exec(ctx, query, userID, ids); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}
