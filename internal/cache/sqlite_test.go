package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/fitlog/internal/domain"
)

func openTestCache(t *testing.T) *SQLite {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoadMissingSnapshotReturnsNil(t *testing.T) {
	c := openTestCache(t)

	snap, err := c.Load(context.Background(), "user-1")
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	want := domain.Snapshot{
		Records: []domain.Record{
			{ID: "r1", Date: "2024-03-10", Type: "Running", Minutes: 30, Intensity: domain.IntensityMedium},
		},
		Types:      domain.BuiltinTypes(),
		ViewWindow: domain.ViewMonthly,
	}
	require.NoError(t, c.Save(ctx, "user-1", want))

	got, err := c.Load(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.ViewWindow, got.ViewWindow)
	require.Equal(t, want.Records, got.Records)
	require.Len(t, got.Types, len(want.Types))
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "user-1", domain.Snapshot{ViewWindow: domain.ViewWeekly}))
	require.NoError(t, c.Save(ctx, "user-1", domain.Snapshot{ViewWindow: domain.ViewMonthly}))

	got, err := c.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.ViewMonthly, got.ViewWindow)
}

func TestSnapshotsAreIsolatedPerUser(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "user-1", domain.Snapshot{ViewWindow: domain.ViewMonthly}))

	snap, err := c.Load(ctx, "user-2")
	require.NoError(t, err)
	require.Nil(t, snap)
}
