package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ListPolicy{
		"":            PolicyAll,
		"all":         PolicyAll,
		" Prioritize": PolicyPrioritize,
		"RESTRICT":    PolicyRestrict,
	} {
		got, err := ParseListPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseListPolicy("top10")
	assert.Error(t, err)
}

func TestApplyPolicy(t *testing.T) {
	t.Parallel()
	coins := sampleCoins()
	popular := []string{"sol", "BTC", "DOGE"}

	t.Run("all keeps provider order", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, coins, ApplyPolicy(PolicyAll, popular, coins))
	})

	t.Run("prioritize moves popular first", func(t *testing.T) {
		t.Parallel()
		got := ApplyPolicy(PolicyPrioritize, popular, coins)
		require.Len(t, got, len(coins))
		// популярные в порядке провайдера, затем остальные
		assert.Equal(t, []string{"bitcoin", "solana", "dogecoin"}, idsOf(got[:3]))
		assert.Equal(t, "ethereum", got[3].ID)
	})

	t.Run("restrict keeps only popular in list order", func(t *testing.T) {
		t.Parallel()
		got := ApplyPolicy(PolicyRestrict, popular, coins)
		assert.Equal(t, []string{"solana", "bitcoin", "dogecoin"}, idsOf(got))
	})

	t.Run("restrict without matches falls back to all", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, coins, ApplyPolicy(PolicyRestrict, []string{"AAA", "BBB"}, coins))
	})

	t.Run("empty popular list is a no-op", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, coins, ApplyPolicy(PolicyRestrict, nil, coins))
	})
}
