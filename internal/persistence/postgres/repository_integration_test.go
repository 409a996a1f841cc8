//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fitlog/internal/domain"
)

const schema = `
CREATE TABLE exercises (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    date DATE NOT NULL,
    type TEXT NOT NULL,
    minutes INT NOT NULL CHECK (minutes > 0),
    intensity INT NOT NULL CHECK (intensity BETWEEN 1 AND 3),
    memo TEXT,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX exercises_user_date ON exercises (user_id, date DESC);

CREATE TABLE exercise_types (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    default_intensity INT NOT NULL CHECK (default_intensity BETWEEN 1 AND 3),
    created_at TIMESTAMPTZ NOT NULL
);
`

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitlog"),
		postgrescontainer.WithUsername("fitlog"),
		postgrescontainer.WithPassword("fitlog"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)

	return NewRepository(pool)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				pool.Close()
				return nil
			}
			pool.Close()
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func TestRepositoryRoundTripIsUserScoped(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	draft := domain.RecordDraft{
		Date:      "2024-03-10",
		Type:      "Running",
		Minutes:   30,
		Intensity: domain.IntensityMedium,
		Memo:      "easy pace",
	}

	rec, err := repo.InsertRecord(ctx, "user-a", draft)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, "2024-03-10", rec.Date)
	require.Equal(t, "easy pace", rec.Memo)

	// Another user sees nothing.
	other, err := repo.ListRecords(ctx, "user-b")
	require.NoError(t, err)
	require.Empty(t, other)

	mine, err := repo.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, rec.ID, mine[0].ID)
}

func TestRepositoryListOrdersByDateDescending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	for _, date := range []string{"2024-03-08", "2024-03-10", "2024-03-09"} {
		_, err := repo.InsertRecord(ctx, "user-a", domain.RecordDraft{
			Date: date, Type: "Yoga", Minutes: 20, Intensity: domain.IntensityLow,
		})
		require.NoError(t, err)
	}

	records, err := repo.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "2024-03-10", records[0].Date)
	require.Equal(t, "2024-03-08", records[2].Date)
}

func TestRepositoryUpdateWritesOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	rec, err := repo.InsertRecord(ctx, "user-a", domain.RecordDraft{
		Date: "2024-03-10", Type: "Gym", Minutes: 60, Intensity: domain.IntensityHigh,
	})
	require.NoError(t, err)

	minutes := 45
	require.NoError(t, repo.UpdateRecord(ctx, "user-a", rec.ID, domain.RecordPatch{Minutes: &minutes}))

	records, err := repo.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Equal(t, 45, records[0].Minutes)
	require.Equal(t, "Gym", records[0].Type)
	require.Equal(t, domain.IntensityHigh, records[0].Intensity)
}

func TestRepositoryDeleteIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	rec, err := repo.InsertRecord(ctx, "user-a", domain.RecordDraft{
		Date: "2024-03-10", Type: "Gym", Minutes: 60, Intensity: domain.IntensityHigh,
	})
	require.NoError(t, err)

	// Deleting as the wrong user leaves the row intact.
	require.NoError(t, repo.DeleteRecord(ctx, "user-b", rec.ID))
	records, err := repo.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, repo.DeleteRecord(ctx, "user-a", rec.ID))
	records, err = repo.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRepositoryTypeRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	typ, err := repo.InsertType(ctx, "user-a", domain.TypeDraft{
		Name: "Climbing", DefaultIntensity: domain.IntensityHigh,
	})
	require.NoError(t, err)
	require.NotEmpty(t, typ.ID)

	types, err := repo.ListTypes(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.Equal(t, "Climbing", types[0].Name)
	require.Equal(t, domain.IntensityHigh, types[0].DefaultIntensity)
}

func TestRepositoryDecodeRejectsInvalidRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	// Bypass the CHECK constraints to simulate a wire shape the domain
	// rejects.
	_, err := repo.pool.Exec(ctx, `ALTER TABLE exercises DROP CONSTRAINT exercises_intensity_check`)
	require.NoError(t, err)
	_, err = repo.pool.Exec(ctx,
		`INSERT INTO exercises (id, user_id, date, type, minutes, intensity, created_at)
         VALUES ('bad-row', 'user-a', '2024-03-10', 'Gym', 30, 9, now())`)
	require.NoError(t, err)

	_, err = repo.ListRecords(ctx, "user-a")
	require.ErrorIs(t, err, domain.ErrInvalidIntensity)
}
