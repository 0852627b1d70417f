package db

import (
	"io/fs"
	"testing"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/config"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/infra/db/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := DSN(&config.PostgresConfig{
		User: "u", Password: "p", Host: "db", Port: 5433, DBName: "crypto", SSLMode: "disable",
	})
	assert.Equal(t, "user=u password=p host=db port=5433 dbname=crypto sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	data, err := fs.ReadFile(migrations.FS, "001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS watchlists")
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS users")
}
