package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/testutil"
)

func TestStore_GuestMarker(t *testing.T) {
	store := New(Options{})
	ctx := context.Background()

	id, err := store.GetGuestMarker(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.SetGuestMarker(ctx, "guest-1"))
	id, err = store.GetGuestMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, "guest-1", id)

	require.Error(t, store.SetGuestMarker(ctx, ""))
	require.NoError(t, store.ClearGuestMarker(ctx))
	id, err = store.GetGuestMarker(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestStore_SessionIsCopied(t *testing.T) {
	store := New(Options{})
	ctx := context.Background()

	session := testutil.NewSession().WithEmail("a@b.co").Build()
	require.NoError(t, store.SaveSession(ctx, session))

	loaded, err := store.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	loaded.AccessToken = "mutated"

	again, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, again.AccessToken)

	require.NoError(t, store.ClearSession(ctx))
	again, err = store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStore_DraftExpires(t *testing.T) {
	store := New(Options{DraftTTL: 20 * time.Millisecond, CleanupInterval: time.Millisecond})
	ctx := context.Background()

	require.NoError(t, store.SaveDraft(ctx, domainauth.ReservationDraft{ServiceID: "svc"}))
	has, err := store.HasDraft(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	assert.Eventually(t, func() bool {
		has, _ := store.HasDraft(ctx)
		return !has
	}, time.Second, 5*time.Millisecond)
}

func TestStore_ClearAll(t *testing.T) {
	store := New(Options{})
	ctx := context.Background()

	require.NoError(t, store.SetGuestMarker(ctx, "guest-1"))
	require.NoError(t, store.SaveDraft(ctx, domainauth.ReservationDraft{ServiceID: "svc"}))
	require.NoError(t, store.SaveSession(ctx, testutil.NewSession().Build()))

	require.NoError(t, store.ClearAll(ctx))

	id, _ := store.GetGuestMarker(ctx)
	assert.Empty(t, id)
	d, _ := store.GetDraft(ctx)
	assert.Nil(t, d)
	s, _ := store.LoadSession(ctx)
	assert.Nil(t, s)
}

func TestStore_CanceledContext(t *testing.T) {
	store := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetGuestMarker(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.SetGuestMarker(ctx, "x"), context.Canceled)
}
