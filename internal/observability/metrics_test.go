package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()
	m := NewMetrics("test")

	m.ObserveFetch(time.Second, nil)
	m.ObserveFetch(time.Second, errors.New("boom"))
	m.ObserveFetch(time.Second, errors.New("boom"))
	m.TickSkipped("demand")
	m.ObserveWrite(errors.New("x"))
	m.SetSnapshotSize(42)
	m.WSConnected()
	m.WSConnected()
	m.WSDisconnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksSkipped.WithLabelValues("demand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchlistOps.WithLabelValues("write", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotCoins))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSClients))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := NewMetrics("test")
	m.SetSnapshotSize(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_market_snapshot_coins 3")
}
