// Package postgres implements the remote persistence adapter over a
// row-oriented Postgres store. Every query is scoped by user id; rows coming
// off the wire go through an explicit decode step that rejects shapes outside
// the domain instead of trusting them.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitlog/internal/domain"
)

// Repository provides Postgres-backed persistence for exercise records and
// exercise types.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// exerciseRow mirrors one row of the exercises table.
type exerciseRow struct {
	ID        string
	UserID    string
	Date      time.Time
	Type      string
	Minutes   int
	Intensity int
	Memo      *string
	CreatedAt time.Time
}

// decode converts a wire row into a domain record, rejecting invalid shapes.
func (r exerciseRow) decode() (domain.Record, error) {
	if r.Minutes <= 0 {
		return domain.Record{}, fmt.Errorf("row %s: %w", r.ID, domain.ErrInvalidMinutes)
	}
	intensity := domain.Intensity(r.Intensity)
	if !intensity.Valid() {
		return domain.Record{}, fmt.Errorf("row %s: %w", r.ID, domain.ErrInvalidIntensity)
	}

	rec := domain.Record{
		ID:        r.ID,
		Date:      r.Date.UTC().Format("2006-01-02"),
		Type:      r.Type,
		Minutes:   r.Minutes,
		Intensity: intensity,
		CreatedAt: r.CreatedAt,
	}
	if r.Memo != nil {
		rec.Memo = *r.Memo
	}
	return rec, nil
}

// typeRow mirrors one row of the exercise_types table.
type typeRow struct {
	ID               string
	UserID           string
	Name             string
	DefaultIntensity int
	CreatedAt        time.Time
}

func (r typeRow) decode() (domain.ExerciseType, error) {
	intensity := domain.Intensity(r.DefaultIntensity)
	if !intensity.Valid() {
		return domain.ExerciseType{}, fmt.Errorf("type row %s: %w", r.ID, domain.ErrInvalidIntensity)
	}
	return domain.ExerciseType{
		ID:               r.ID,
		Name:             r.Name,
		DefaultIntensity: intensity,
	}, nil
}

// ListRecords returns every exercise record of the user, newest date first.
func (r *Repository) ListRecords(ctx context.Context, userID string) ([]domain.Record, error) {
	const query = `SELECT id, user_id, date, type, minutes, intensity, memo, created_at
        FROM exercises WHERE user_id=$1 ORDER BY date DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var row exerciseRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Date, &row.Type, &row.Minutes, &row.Intensity, &row.Memo, &row.CreatedAt); err != nil {
			return nil, err
		}
		rec, err := row.decode()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertRecord persists a new record and returns the stored row.
func (r *Repository) InsertRecord(ctx context.Context, userID string, draft domain.RecordDraft) (domain.Record, error) {
	const stmt = `INSERT INTO exercises (id, user_id, date, type, minutes, intensity, memo, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, user_id, date, type, minutes, intensity, memo, created_at`

	var row exerciseRow
	err := r.pool.QueryRow(ctx, stmt,
		uuid.NewString(),
		userID,
		draft.Date,
		draft.Type,
		draft.Minutes,
		int(draft.Intensity),
		nullIfEmpty(draft.Memo),
		time.Now().UTC(),
	).Scan(&row.ID, &row.UserID, &row.Date, &row.Type, &row.Minutes, &row.Intensity, &row.Memo, &row.CreatedAt)
	if err != nil {
		return domain.Record{}, err
	}
	return row.decode()
}

// UpdateRecord applies the patch to the user's record. Only the supplied
// fields are written.
func (r *Repository) UpdateRecord(ctx context.Context, userID, id string, patch domain.RecordPatch) error {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 7)

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.Minutes != nil {
		add("minutes", *patch.Minutes)
	}
	if patch.Intensity != nil {
		add("intensity", int(*patch.Intensity))
	}
	if patch.Memo != nil {
		add("memo", nullIfEmpty(*patch.Memo))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, userID)
	stmt := fmt.Sprintf("UPDATE exercises SET %s WHERE id=$%d AND user_id=$%d",
		strings.Join(sets, ", "), len(args)-1, len(args))

	_, err := r.pool.Exec(ctx, stmt, args...)
	return err
}

// DeleteRecord removes the user's record by id.
func (r *Repository) DeleteRecord(ctx context.Context, userID, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exercises WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

// ListTypes returns the user-defined exercise types.
func (r *Repository) ListTypes(ctx context.Context, userID string) ([]domain.ExerciseType, error) {
	const query = `SELECT id, user_id, name, default_intensity, created_at
        FROM exercise_types WHERE user_id=$1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.ExerciseType
	for rows.Next() {
		var row typeRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Name, &row.DefaultIntensity, &row.CreatedAt); err != nil {
			return nil, err
		}
		typ, err := row.decode()
		if err != nil {
			return nil, err
		}
		types = append(types, typ)
	}
	return types, rows.Err()
}

// InsertType persists a user-defined exercise type and returns the stored row.
func (r *Repository) InsertType(ctx context.Context, userID string, draft domain.TypeDraft) (domain.ExerciseType, error) {
	const stmt = `INSERT INTO exercise_types (id, user_id, name, default_intensity, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, user_id, name, default_intensity, created_at`

	var row typeRow
	err := r.pool.QueryRow(ctx, stmt,
		uuid.NewString(),
		userID,
		draft.Name,
		int(draft.DefaultIntensity),
		time.Now().UTC(),
	).Scan(&row.ID, &row.UserID, &row.Name, &row.DefaultIntensity, &row.CreatedAt)
	if err != nil {
		return domain.ExerciseType{}, err
	}
	return row.decode()
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
