package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/wodcoach/internal/contexthelpers"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/sqlite"
)

// ErrNotFound is returned when a workout does not exist or belongs to another user.
var ErrNotFound = errors.NewSentinel("workout not found")

const timestampFormat = "2006-01-02T15:04:05.000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{db: db, logger: logger}
}

// sqliteWorkoutRepository stores workouts as JSON documents scoped to the authenticated user.
type sqliteWorkoutRepository struct {
	baseRepository
	now   func() time.Time
	newID func() string
}

func newSQLiteWorkoutRepository(db *sqlite.Database, logger *slog.Logger) *sqliteWorkoutRepository {
	return &sqliteWorkoutRepository{
		baseRepository: newBaseRepository(db, logger),
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// storedDocument is the JSON written to the document column. Identity and timestamps live in their own columns.
func storedDocument(w Workout) ([]byte, error) {
	w.ID = ""
	w.CreatedAt = time.Time{}
	w.UpdatedAt = time.Time{}
	doc, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal workout: %w", err)
	}
	return doc, nil
}

func scanWorkout(id, document, createdAt, updatedAt string) (Workout, error) {
	var w Workout
	if err := json.Unmarshal([]byte(document), &w); err != nil {
		return Workout{}, fmt.Errorf("unmarshal workout %s: %w", id, err)
	}
	w.ID = id
	var err error
	if w.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Workout{}, err
	}
	if w.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return Workout{}, err
	}
	return w, nil
}

// Create inserts w with a generated id. Both timestamps are set to the time of the write.
func (r *sqliteWorkoutRepository) Create(ctx context.Context, w Workout) (Workout, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	w.ID = r.newID()
	w.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	w.UpdatedAt = w.CreatedAt

	doc, err := storedDocument(w)
	if err != nil {
		return Workout{}, err
	}
	if _, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO workouts (id, user_id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, userID, w.Name, string(doc), formatTimestamp(w.CreatedAt), formatTimestamp(w.UpdatedAt)); err != nil {
		return Workout{}, fmt.Errorf("insert workout: %w", err)
	}
	return w, nil
}

// List returns the workouts of the user, newest first.
func (r *sqliteWorkoutRepository) List(ctx context.Context) (_ []Workout, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, document, created_at, updated_at
		FROM workouts
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	workouts := make([]Workout, 0)
	for rows.Next() {
		var id, document, createdAt, updatedAt string
		if err = rows.Scan(&id, &document, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan workout row: %w", err)
		}
		var w Workout
		if w, err = scanWorkout(id, document, createdAt, updatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return workouts, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *sqliteWorkoutRepository) get(ctx context.Context, q queryRower, id string) (Workout, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	var document, createdAt, updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT document, created_at, updated_at
		FROM workouts
		WHERE id = ? AND user_id = ?`, id, userID).Scan(&document, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Workout{}, ErrNotFound
	}
	if err != nil {
		return Workout{}, fmt.Errorf("query workout: %w", err)
	}
	return scanWorkout(id, document, createdAt, updatedAt)
}

// Get returns the workout with id or ErrNotFound.
func (r *sqliteWorkoutRepository) Get(ctx context.Context, id string) (Workout, error) {
	return r.get(ctx, r.db.ReadOnly, id)
}

// Update reads the workout, applies updateFn and writes the result in one transaction. Nothing is written when
// updateFn reports no change. Concurrent updates are serialised by the single writer and the last one wins.
func (r *sqliteWorkoutRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(w *Workout) (bool, error),
) (_ Workout, err error) {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return Workout{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	w, err := r.get(ctx, tx, id)
	if err != nil {
		return Workout{}, err
	}
	updated, err := updateFn(&w)
	if err != nil {
		return Workout{}, fmt.Errorf("update function: %w", err)
	}
	if !updated {
		return w, nil
	}

	w.ID = id
	w.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	doc, err := storedDocument(w)
	if err != nil {
		return Workout{}, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE workouts SET name = ?, document = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		w.Name, string(doc), formatTimestamp(w.UpdatedAt), id, contexthelpers.AuthenticatedUserID(ctx)); err != nil {
		return Workout{}, fmt.Errorf("update workout: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return Workout{}, fmt.Errorf("commit transaction: %w", err)
	}
	return w, nil
}

// Delete removes the workout. It reports whether the workout existed; deleting a missing workout is not an error.
func (r *sqliteWorkoutRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check workout exists: %w", err)
	}
	if _, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM workouts WHERE id = ? AND user_id = ?`,
		id, contexthelpers.AuthenticatedUserID(ctx)); err != nil {
		return false, fmt.Errorf("delete workout: %w", err)
	}
	return true, nil
}
