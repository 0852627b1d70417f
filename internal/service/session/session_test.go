package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository/memory"
	sessmocks "github.com/NastyaGoryachaya/crypto-tracker/internal/service/session/mocks"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist"
	wlmocks "github.com/NastyaGoryachaya/crypto-tracker/internal/service/watchlist/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = domain.User{ID: "u-alice", Email: "alice@example.com"}

func TestLogin_OpensSessionAndLoadsWatchlist(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	store := memory.NewWatchlistStore()
	require.NoError(t, store.Save(context.Background(), alice.ID, []string{"bitcoin"}))

	m := NewManager(auth, store, Options{}, slog.Default())
	t.Cleanup(m.Close)

	auth.EXPECT().Login(gomock.Any(), "alice@example.com", "secret1").Return(alice, nil)

	s, err := m.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, alice, s.User)
	assert.Equal(t, watchlist.Loaded, s.Watchlist.State())
	assert.Equal(t, []string{"bitcoin"}, s.Watchlist.IDs())

	got, err := m.Get(s.Token)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())
}

func TestLogin_AuthErrorCreatesNoSession(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	m := NewManager(auth, memory.NewWatchlistStore(), Options{}, slog.Default())

	authErr := derrors.NewAuthError("invalid email or password", nil)
	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.User{}, authErr)

	_, err := m.Login(context.Background(), "alice@example.com", "nope")
	assert.ErrorIs(t, err, derrors.ErrAuth)
	assert.Zero(t, m.Count())
}

func TestRegister_LogsIn(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	m := NewManager(auth, memory.NewWatchlistStore(), Options{}, slog.Default())
	t.Cleanup(m.Close)

	auth.EXPECT().Register(gomock.Any(), "alice@example.com", "secret1").Return(alice, nil)

	s, err := m.Register(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, watchlist.Loaded, s.Watchlist.State())
	assert.Empty(t, s.Watchlist.IDs())
}

func TestWatchlistLoadedOncePerSession(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	store := wlmocks.NewMockStore(ctrl)
	m := NewManager(auth, store, Options{}, slog.Default())
	t.Cleanup(m.Close)

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil).Times(2)
	// два входа - две сессии - два чтения; Get не читает повторно
	store.EXPECT().Load(gomock.Any(), alice.ID).Return([]string{"solana"}, nil).Times(2)

	s1, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)
	s2, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, s1.Token, s2.Token)

	for range 3 {
		_, err := m.Get(s1.Token)
		require.NoError(t, err)
	}
}

func TestLogin_WatchlistLoadFailureStillLogsIn(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	store := wlmocks.NewMockStore(ctrl)
	m := NewManager(auth, store, Options{}, slog.Default())
	t.Cleanup(m.Close)

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
	store.EXPECT().Load(gomock.Any(), alice.ID).Return(nil, errors.New("timeout"))

	s, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)
	// пустой набор не считается загруженным, правки ждут успешного чтения
	assert.Equal(t, watchlist.Unloaded, s.Watchlist.State())
	assert.NotEmpty(t, s.Watchlist.Notice())
}

func TestLogin_LoadIgnoresRequestCancel(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	store := wlmocks.NewMockStore(ctrl)
	m := NewManager(auth, store, Options{}, slog.Default())
	t.Cleanup(m.Close)

	ctx, cancel := context.WithCancel(context.Background())
	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string) (domain.User, error) {
			cancel()
			return alice, nil
		})
	store.EXPECT().Load(gomock.Any(), alice.ID).DoAndReturn(func(ctx context.Context, _ string) ([]string, error) {
		return []string{"bitcoin"}, ctx.Err()
	})

	s, err := m.Login(ctx, alice.Email, "secret1")
	require.NoError(t, err)
	assert.Equal(t, watchlist.Loaded, s.Watchlist.State())
}

func TestLogout_StopsWatchlistWrites(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	m := NewManager(auth, memory.NewWatchlistStore(), Options{}, slog.Default())

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
	s, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)

	require.NoError(t, m.Logout(s.Token))
	assert.ErrorIs(t, m.Logout(s.Token), derrors.ErrSessionNotFound)

	_, err = m.Get(s.Token)
	assert.ErrorIs(t, err, derrors.ErrSessionNotFound)
	assert.ErrorIs(t, s.Watchlist.Add("bitcoin"), derrors.ErrSessionNotFound)
}

func TestLogoutUser_ClosesOnlyThatUser(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	m := NewManager(auth, memory.NewWatchlistStore(), Options{}, slog.Default())
	t.Cleanup(m.Close)

	bob := domain.User{ID: "u-bob", Email: "bob@example.com"}
	auth.EXPECT().Login(gomock.Any(), alice.Email, gomock.Any()).Return(alice, nil).Times(2)
	auth.EXPECT().Login(gomock.Any(), bob.Email, gomock.Any()).Return(bob, nil)

	a1, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)
	a2, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)
	b, err := m.Login(context.Background(), bob.Email, "secret1")
	require.NoError(t, err)

	assert.Equal(t, 2, m.LogoutUser(alice.ID))
	assert.Zero(t, m.LogoutUser(alice.ID))

	for _, s := range []*Session{a1, a2} {
		_, err := m.Get(s.Token)
		assert.ErrorIs(t, err, derrors.ErrSessionNotFound)
		assert.ErrorIs(t, s.Watchlist.Add("bitcoin"), derrors.ErrSessionNotFound)
	}
	got, err := m.Get(b.Token)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, 1, m.Count())
}

func TestSessionExpiry(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	auth := sessmocks.NewMockAuthenticator(ctrl)
	m := NewManager(auth, memory.NewWatchlistStore(), Options{
		TTL:             30 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	}, slog.Default())

	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
	s, err := m.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := m.Get(s.Token)
		return errors.Is(err, derrors.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)

	// janitor вызывает OnEvicted и закрывает watchlist
	require.Eventually(t, func() bool {
		return errors.Is(s.Watchlist.Add("bitcoin"), derrors.ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)
}
