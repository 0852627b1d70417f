package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	wlmocks "github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

// helper to build watchlist with mocks
func setupSync(t *testing.T) (*wlmocks.MockStore, *Sync) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := wlmocks.NewMockStore(ctrl)
	s := New(testUser, store, Options{WriteTimeout: time.Second}, slog.Default())
	t.Cleanup(s.Close)
	return store, s
}

func loaded(t *testing.T, store *wlmocks.MockStore, s *Sync, ids ...string) {
	t.Helper()
	store.EXPECT().Load(gomock.Any(), testUser).Return(ids, nil)
	require.NoError(t, s.Load(context.Background()))
}

// idle - очередь пуста и запись не идёт
func (s *Sync) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) == 0 && !s.writing
}

func waitIdle(t *testing.T, s *Sync) {
	t.Helper()
	require.Eventually(t, s.idle, 2*time.Second, 5*time.Millisecond)
}

func TestLoad_Success(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)

	assert.Equal(t, Unloaded, s.State())
	loaded(t, store, s, "solana", "bitcoin")

	assert.Equal(t, Loaded, s.State())
	assert.Equal(t, []string{"bitcoin", "solana"}, s.IDs())
	assert.True(t, s.Contains("solana"))
	assert.Empty(t, s.Notice())

	// повторная загрузка в той же сессии не ходит в хранилище
	require.NoError(t, s.Load(context.Background()))
}

func TestLoad_FailureKeepsRemoteData(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)

	store.EXPECT().Load(gomock.Any(), testUser).Return(nil, errors.New("store unavailable")).Times(2)
	err := s.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, derrors.ErrWatchlistSync)
	assert.Equal(t, Unloaded, s.State())
	assert.Empty(t, s.IDs())
	assert.NotEmpty(t, s.Notice())

	// мутация повторяет чтение; пока оно падает, в хранилище ничего не пишется
	store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	assert.ErrorIs(t, s.Add("d"), derrors.ErrWatchlistNotLoaded)
	waitIdle(t, s)
}

func TestLoad_RetryBeforeFirstWrite(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)

	gomock.InOrder(
		store.EXPECT().Load(gomock.Any(), testUser).Return(nil, errors.New("timeout")),
		store.EXPECT().Load(gomock.Any(), testUser).Return([]string{"a", "b", "c"}, nil),
		// удалённые монеты сохраняются вместе с новой
		store.EXPECT().Save(gomock.Any(), testUser, []string{"a", "b", "c", "d"}).Return(nil),
	)

	require.Error(t, s.Load(context.Background()))
	require.NoError(t, s.Add("d"))
	waitIdle(t, s)

	assert.Equal(t, Loaded, s.State())
	assert.Empty(t, s.Notice())
	assert.NoError(t, s.LastError())
}

func TestLoad_AfterCloseFails(t *testing.T) {
	t.Parallel()
	_, s := setupSync(t)
	s.Close()
	assert.ErrorIs(t, s.Load(context.Background()), derrors.ErrSessionNotFound)
}

func TestMutationsBeforeLoad(t *testing.T) {
	t.Parallel()
	_, s := setupSync(t)

	assert.ErrorIs(t, s.Add("bitcoin"), derrors.ErrWatchlistNotLoaded)
	assert.ErrorIs(t, s.Remove("bitcoin"), derrors.ErrWatchlistNotLoaded)
	_, err := s.Toggle("bitcoin")
	assert.ErrorIs(t, err, derrors.ErrWatchlistNotLoaded)
}

func TestAddThenRemove_WritesInOrder(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)
	loaded(t, store, s, "bitcoin")

	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), testUser, []string{"bitcoin", "solana"}).Return(nil),
		store.EXPECT().Save(gomock.Any(), testUser, []string{"bitcoin"}).Return(nil),
	)

	require.NoError(t, s.Add("solana"))
	assert.True(t, s.Contains("solana"))
	require.NoError(t, s.Remove("solana"))

	waitIdle(t, s)
	assert.Equal(t, []string{"bitcoin"}, s.IDs())
}

func TestToggleTwice_RestoresMembership(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)
	loaded(t, store, s)

	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), testUser, []string{"ethereum"}).Return(nil),
		store.EXPECT().Save(gomock.Any(), testUser, []string{}).Return(nil),
	)

	in, err := s.Toggle("ethereum")
	require.NoError(t, err)
	assert.True(t, in)

	in, err = s.Toggle("ethereum")
	require.NoError(t, err)
	assert.False(t, in)

	waitIdle(t, s)
	assert.Empty(t, s.IDs())
}

func TestAddExisting_NoWrite(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)
	loaded(t, store, s, "bitcoin")

	// Save не ожидается
	require.NoError(t, s.Add("bitcoin"))
	require.NoError(t, s.Remove("dogecoin"))
	waitIdle(t, s)
}

func TestWriteFailure_NoRollback(t *testing.T) {
	t.Parallel()
	store, s := setupSync(t)
	loaded(t, store, s)

	store.EXPECT().Save(gomock.Any(), testUser, []string{"bitcoin"}).Return(errors.New("write refused"))

	require.NoError(t, s.Add("bitcoin"))
	waitIdle(t, s)

	assert.True(t, s.Contains("bitcoin"))
	assert.ErrorIs(t, s.LastError(), derrors.ErrWatchlistSync)
	assert.NotEmpty(t, s.Notice())
}

func TestClose_DropsPendingWrites(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := wlmocks.NewMockStore(ctrl)
	s := New(testUser, store, Options{WriteTimeout: time.Minute}, slog.Default())
	loaded(t, store, s)

	started := make(chan struct{})
	store.EXPECT().Save(gomock.Any(), testUser, []string{"bitcoin"}).DoAndReturn(
		func(ctx context.Context, _ string, _ []string) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})

	require.NoError(t, s.Add("bitcoin"))
	<-started
	// вторая запись ждёт в очереди и не должна уйти в хранилище
	require.NoError(t, s.Add("solana"))

	s.Close()

	assert.ErrorIs(t, s.Add("dogecoin"), derrors.ErrSessionNotFound)
	assert.Empty(t, s.Notice())
	// повторный Close безопасен
	s.Close()
}

func TestQueueOverflow_KeepsLatestState(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := wlmocks.NewMockStore(ctrl)
	s := New(testUser, store, Options{WriteTimeout: time.Second, QueueSize: 1}, slog.Default())
	t.Cleanup(s.Close)
	loaded(t, store, s)

	release := make(chan struct{})
	started := make(chan struct{})
	var last []string
	store.EXPECT().Save(gomock.Any(), testUser, []string{"a"}).DoAndReturn(
		func(context.Context, string, []string) error {
			close(started)
			<-release
			return nil
		})
	store.EXPECT().Save(gomock.Any(), testUser, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, ids []string) error {
			last = ids
			return nil
		})

	require.NoError(t, s.Add("a"))
	<-started
	require.NoError(t, s.Add("b"))
	require.NoError(t, s.Add("c"))
	close(release)

	waitIdle(t, s)
	assert.Equal(t, []string{"a", "b", "c"}, last)
}
