package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purumi/purumi/internal/migrate"
	"github.com/purumi/purumi/internal/testutil"
)

func TestVersions(t *testing.T) {
	versions, err := migrate.Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_profiles", "002_video_stats", "003_reservations"}, versions)
}

func TestRun_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, migrate.Run(ctx, db))
	require.NoError(t, migrate.Run(ctx, db))

	pending, err := migrate.Pending(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, pending)

	for _, table := range []string{"profiles", "video_stats", "user_likes"} {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}
