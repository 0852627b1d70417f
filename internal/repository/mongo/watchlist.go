package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// watchlistDocument - один документ на пользователя, _id = user id
type watchlistDocument struct {
	UserID    string    `bson:"_id"`
	Coins     []string  `bson:"coins"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type WatchlistRepo struct {
	c   *mongo.Collection
	now func() time.Time
}

func NewWatchlistRepo(collection *mongo.Collection) *WatchlistRepo {
	return &WatchlistRepo{
		c:   collection,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Load - нет документа - пустой набор
func (r *WatchlistRepo) Load(ctx context.Context, userID string) ([]string, error) {
	var doc watchlistDocument
	err := r.c.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if doc.Coins == nil {
		return []string{}, nil
	}
	return doc.Coins, nil
}

// Save - заменяет документ целиком (upsert)
func (r *WatchlistRepo) Save(ctx context.Context, userID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	doc := watchlistDocument{UserID: userID, Coins: ids, UpdatedAt: r.now()}
	_, err := r.c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}
