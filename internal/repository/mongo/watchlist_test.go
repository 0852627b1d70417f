package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/infra/mongodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Нужен живой MongoDB: MONGO_URL_TEST=mongodb://localhost:27017
func TestWatchlistRepo(t *testing.T) {
	uri := os.Getenv("MONGO_URL_TEST")
	if uri == "" || testing.Short() {
		t.Skip("MONGO_URL_TEST not set, skipping mongo integration test")
	}

	ctx := context.Background()
	cfg := &config.MongoConfig{
		URI:        uri,
		Database:   "crypto_tracker_test",
		Collection: "watchlists_" + time.Now().UTC().Format("20060102150405"),
		Timeout:    10 * time.Second,
	}
	client, err := mongodb.Connect(ctx, cfg)
	require.NoError(t, err)
	coll := mongodb.Collection(client, cfg)
	t.Cleanup(func() {
		_ = coll.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	repo := NewWatchlistRepo(coll)

	ids, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.Save(ctx, "u1", []string{"bitcoin", "solana"}))
	ids, err = repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "solana"}, ids)

	require.NoError(t, repo.Save(ctx, "u1", []string{"ethereum"}))
	ids, err = repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum"}, ids)

	n, err := coll.CountDocuments(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
