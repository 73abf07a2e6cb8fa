package auth_test

import (
	"testing"
	"time"

	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLedger(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	ledger := auth.NewSessionLedger(tc.DB)

	t.Run("create and find", func(t *testing.T) {
		s, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("one"), time.Hour)
		require.NoError(t, err)
		assert.True(t, s.Live(time.Now()))

		found, err := ledger.FindByHash(ctx, auth.HashRefreshToken("one"))
		require.NoError(t, err)
		assert.Equal(t, s.ID, found.ID)
		assert.True(t, s.ExpiresAt.Equal(found.ExpiresAt))
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := ledger.FindByHash(ctx, auth.HashRefreshToken("missing"))
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("revoke has exactly one winner", func(t *testing.T) {
		s, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("two"), time.Hour)
		require.NoError(t, err)

		won, err := ledger.Revoke(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, won)

		won, err = ledger.Revoke(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, won)

		found, err := ledger.FindByHash(ctx, auth.HashRefreshToken("two"))
		require.NoError(t, err)
		assert.False(t, found.Live(time.Now()))
	})

	t.Run("revoke by hash", func(t *testing.T) {
		_, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("three"), time.Hour)
		require.NoError(t, err)

		n, err := ledger.RevokeByHash(ctx, auth.HashRefreshToken("three"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = ledger.RevokeByHash(ctx, auth.HashRefreshToken("three"))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("duplicate hash is refused", func(t *testing.T) {
		_, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("one"), time.Hour)
		assert.Error(t, err)
	})
}

func TestSessionLedger_PurgeDead(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	ledger := auth.NewSessionLedger(tc.DB)

	live, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("live"), time.Hour)
	require.NoError(t, err)
	expired, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("expired"), time.Hour)
	require.NoError(t, err)
	revoked, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("revoked"), time.Hour)
	require.NoError(t, err)
	recent, err := ledger.Create(ctx, tc.User.ID, auth.HashRefreshToken("recent"), time.Hour)
	require.NoError(t, err)

	old := models.Now().Add(-48 * time.Hour)
	require.NoError(t, tc.DB.Model(expired).Update("expires_at", old).Error)
	require.NoError(t, tc.DB.Model(revoked).Update("revoked_at", old).Error)
	_, err = ledger.Revoke(ctx, recent.ID)
	require.NoError(t, err)

	n, err := ledger.PurgeDead(ctx, models.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var remaining []models.Session
	require.NoError(t, tc.DB.Order("created_at").Find(&remaining).Error)
	ids := map[string]bool{}
	for _, s := range remaining {
		ids[s.ID.String()] = true
	}
	assert.True(t, ids[live.ID.String()])
	assert.True(t, ids[recent.ID.String()], "recently revoked sessions are kept until retention passes")
}
