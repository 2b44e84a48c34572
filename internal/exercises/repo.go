package exercises

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrExerciseNotFound  = errors.New("exercise not found")
	ErrExerciseNameTaken = errors.New("exercise name already exists")
)

var columns = []string{"id", "name", "instructions", "gif_url", "uses_weight", "created_at", "updated_at"}

// SelectColumns returns the exercise columns qualified with the given table alias,
// for queries in other packages that embed the exercise.
func SelectColumns(alias string) string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// ScanTargets returns the scan destinations matching SelectColumns.
func ScanTargets(e *Exercise) []any {
	return []any{&e.ID, &e.Name, &e.Instructions, &e.GifURL, &e.UsesWeight, &e.CreatedAt, &e.UpdatedAt}
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO exercises (name, instructions, gif_url, uses_weight)
			VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;`,
		exercise.Name, exercise.Instructions, exercise.GifURL, exercise.UsesWeight,
	).Scan(&exercise.ID, &exercise.CreatedAt, &exercise.UpdatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseNameTaken
		}
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	return &exercise, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var e Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT `+SelectColumns("e")+` FROM exercises e WHERE e.id = $1;`,
		id,
	).Scan(ScanTargets(&e)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get exercise: %w", err)
	}

	return &e, nil
}

// List returns the whole catalog ordered by name.
func (r *Repo) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+SelectColumns("e")+` FROM exercises e ORDER BY e.name ASC, e.id ASC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(ScanTargets(&e)...); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(exercises)))
	return exercises, nil
}

// Update applies the patch to the stored exercise and bumps updated_at.
func (r *Repo) Update(ctx context.Context, id int, patch Patch) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var updated Exercise
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(
			ctx,
			`SELECT `+SelectColumns("e")+` FROM exercises e WHERE e.id = $1 FOR UPDATE;`,
			id,
		).Scan(ScanTargets(&updated)...)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrExerciseNotFound
			}
			return fmt.Errorf("lock exercise: %w", err)
		}

		patch.Apply(&updated)

		return tx.QueryRow(
			ctx,
			`UPDATE exercises
				SET name = $1, instructions = $2, gif_url = $3, uses_weight = $4, updated_at = now()
			WHERE id = $5
			RETURNING updated_at;`,
			updated.Name, updated.Instructions, updated.GifURL, updated.UsesWeight, id,
		).Scan(&updated.UpdatedAt)
	})
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseNameTaken
		}
		if errors.Is(err, ErrExerciseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update exercise: %w", err)
	}

	return &updated, nil
}

// Delete removes the exercise. Plan entries and logged sets referencing it go with it.
func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercises WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}
