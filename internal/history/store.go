package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SetRecord is one completed set as stored in the history database
type SetRecord struct {
	ID           string
	WorkoutID    string
	WorkoutName  string
	ExerciseID   string
	ExerciseName string
	SetNumber    int
	Kind         workout.SetKind
	Reps         int
	Weight       float64
	Duration     time.Duration
	// EstimatedOneRM is the Epley estimate for weighted sets, 0 otherwise
	EstimatedOneRM float64
	CompletedAt    time.Time
}

// Store persists completed sets in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and applies pending migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}
	return &Store{db: db}, nil
}

// RunMigrations applies all embedded migrations to the database at path
func RunMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores rec. A missing ID or timestamp is filled in and the 1RM
// estimate is computed for weighted sets. The stored record is returned.
func (s *Store) Record(ctx context.Context, rec SetRecord) (SetRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	rec.EstimatedOneRM = 0
	if rec.Kind == workout.KindWeight {
		rec.EstimatedOneRM = EpleyOneRM(rec.Weight, rec.Reps)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO set_records
		(id, workout_id, workout_name, exercise_id, exercise_name, set_number, kind,
		 reps, weight, duration_ms, estimated_1rm, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkoutID, rec.WorkoutName, rec.ExerciseID, rec.ExerciseName, rec.SetNumber, string(rec.Kind),
		rec.Reps, rec.Weight, rec.Duration.Milliseconds(), rec.EstimatedOneRM, rec.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return SetRecord{}, fmt.Errorf("inserting set record: %w", err)
	}
	return rec, nil
}

// RecordSet stores a set finished in a workout session
func (s *Store) RecordSet(ctx context.Context, set workout.CompletedSet) error {
	_, err := s.Record(ctx, SetRecord{
		WorkoutID:    set.WorkoutID,
		WorkoutName:  set.WorkoutName,
		ExerciseID:   set.ExerciseID,
		ExerciseName: set.ExerciseName,
		SetNumber:    set.SetNumber,
		Kind:         set.Data.Kind,
		Reps:         set.Data.Reps,
		Weight:       set.Data.Weight,
		Duration:     set.Data.Duration,
		CompletedAt:  set.CompletedAt,
	})
	return err
}

const selectColumns = `SELECT id, workout_id, workout_name, exercise_id, exercise_name, set_number, kind,
	reps, weight, duration_ms, estimated_1rm, completed_at FROM set_records`

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]SetRecord, error) {
	return s.query(ctx, selectColumns+` ORDER BY completed_at DESC, rowid DESC LIMIT ?`, limit)
}

// ForExercise returns up to limit records of one exercise, newest first.
// The name match is case-insensitive.
func (s *Store) ForExercise(ctx context.Context, exercise string, limit int) ([]SetRecord, error) {
	return s.query(ctx, selectColumns+` WHERE exercise_name = ? COLLATE NOCASE
		ORDER BY completed_at DESC, rowid DESC LIMIT ?`, exercise, limit)
}

// PersonalBest returns the record with the highest 1RM estimate for an exercise
func (s *Store) PersonalBest(ctx context.Context, exercise string) (SetRecord, bool, error) {
	records, err := s.query(ctx, selectColumns+` WHERE exercise_name = ? COLLATE NOCASE AND estimated_1rm > 0
		ORDER BY estimated_1rm DESC, completed_at ASC LIMIT 1`, exercise)
	if err != nil {
		return SetRecord{}, false, err
	}
	if len(records) == 0 {
		return SetRecord{}, false, nil
	}
	return records[0], true, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]SetRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying set records: %w", err)
	}
	defer rows.Close()

	var out []SetRecord
	for rows.Next() {
		var (
			rec         SetRecord
			kind        string
			durationMs  int64
			completedAt int64
		)
		err := rows.Scan(&rec.ID, &rec.WorkoutID, &rec.WorkoutName, &rec.ExerciseID, &rec.ExerciseName,
			&rec.SetNumber, &kind, &rec.Reps, &rec.Weight, &durationMs, &rec.EstimatedOneRM, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning set record: %w", err)
		}
		rec.Kind = workout.SetKind(kind)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.CompletedAt = time.UnixMilli(completedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading set records: %w", err)
	}
	return out, nil
}
