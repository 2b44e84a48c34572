package workouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/exercises"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrUnknownPlan     = errors.New("referenced workout plan does not exist")
	ErrUnknownExercise = errors.New("referenced exercise does not exist")
)

const logColumns = `wl.id, wl.workout_plan_id, wl.name, wl.notes, wl.performed_at, wl.created_at,
	wp.id, wp.name, wp.description, wp.notes, wp.created_at, wp.updated_at`

const logFrom = `FROM workout_logs wl
	LEFT JOIN workout_plans wp ON wp.id = wl.workout_plan_id`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, req CreateRequest) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("sets", len(req.Sets)))

	var created *WorkoutLog
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var id int
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO workout_logs (workout_plan_id, name, notes, performed_at)
				VALUES ($1, $2, $3, COALESCE($4, now()))
			RETURNING id;`,
			req.WorkoutPlanID, req.Name, req.Notes, req.PerformedAt,
		).Scan(&id); err != nil {
			return classifyFKError(err, "insert workout log")
		}

		if err := insertSets(ctx, tx, id, req.Sets); err != nil {
			return err
		}

		var err error
		created, err = getLog(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("workout.id", created.ID))
	return created, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	return getLog(ctx, r.db, id)
}

// List returns all logs, most recently performed first.
func (r *Repo) List(ctx context.Context) (_ []WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	logs, err := queryLogs(
		ctx, r.db,
		`SELECT `+logColumns+` `+logFrom+`
		ORDER BY wl.performed_at DESC, wl.id DESC;`,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(logs)))
	return logs, nil
}

// ListRecent returns at most limit logs, most recently performed first.
func (r *Repo) ListRecent(ctx context.Context, limit int) (_ []WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list_recent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))

	return queryLogs(
		ctx, r.db,
		`SELECT `+logColumns+` `+logFrom+`
		ORDER BY wl.performed_at DESC, wl.id DESC
		LIMIT $1;`,
		limit,
	)
}

// Update applies the patch in a single transaction. When the patch carries
// sets, all existing sets of the log are removed and the new ones inserted.
func (r *Repo) Update(ctx context.Context, id int, patch Patch) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("id", id),
		attribute.Bool("replace.sets", patch.ReplacesSets()),
	)

	var updated *WorkoutLog
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(
			ctx,
			`UPDATE workout_logs
				SET workout_plan_id = COALESCE($1, workout_plan_id),
					name            = COALESCE($2, name),
					notes           = COALESCE($3, notes),
					performed_at    = COALESCE($4, performed_at)
			WHERE id = $5;`,
			patch.WorkoutPlanID, patch.Name, patch.Notes, patch.PerformedAt, id,
		)
		if err != nil {
			return classifyFKError(err, "update workout log")
		}
		if tag.RowsAffected() == 0 {
			return ErrWorkoutNotFound
		}

		if patch.ReplacesSets() {
			if _, err := tx.Exec(ctx, `DELETE FROM workout_sets WHERE workout_log_id = $1;`, id); err != nil {
				return fmt.Errorf("delete workout sets: %w", err)
			}
			if err := insertSets(ctx, tx, id, patch.Sets); err != nil {
				return err
			}
		}

		updated, err = getLog(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_logs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete workout log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// LastWeights looks up the most recent weight and reps per set number
// for each of the given exercises, in a single query.
func (r *Repo) LastWeights(ctx context.Context, exerciseIDs []int) (_ map[int][]LastWeight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.last_weights")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.IntSlice("exercise.ids", exerciseIDs))

	if len(exerciseIDs) == 0 {
		return map[int][]LastWeight{}, nil
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT exercise_id, set_number, weight, reps
		FROM (
			SELECT ws.exercise_id, ws.set_number, ws.weight::float8 AS weight, ws.reps,
				ROW_NUMBER() OVER (
					PARTITION BY ws.exercise_id
					ORDER BY wl.performed_at DESC, ws.id DESC
				) AS rn
			FROM workout_sets ws
				JOIN workout_logs wl ON wl.id = ws.workout_log_id
			WHERE ws.exercise_id = ANY($1)
		) ranked
		WHERE rn <= $2
		ORDER BY exercise_id, rn;`,
		exerciseIDs, lastWeightsWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sets: %w", err)
	}
	defer rows.Close()

	recent := make([]RecentSet, 0, len(exerciseIDs)*lastWeightsWindow)
	for rows.Next() {
		var rs RecentSet
		if err := rows.Scan(&rs.ExerciseID, &rs.SetNumber, &rs.Weight, &rs.Reps); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		recent = append(recent, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := FoldLastWeights(recent)
	span.SetAttributes(attribute.Int("exercises.found", len(result)))
	return result, nil
}

func insertSets(ctx context.Context, tx pgx.Tx, logID int, sets []SetInput) error {
	if len(sets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range sets {
		batch.Queue(
			`INSERT INTO workout_sets (workout_log_id, exercise_id, set_number, weight, reps, notes, completed)
			VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			logID, s.ExerciseID, s.SetNumber, s.Weight, *s.Reps, s.Notes, s.completed(),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return classifyFKError(err, "insert workout sets")
	}
	return nil
}

// classifyFKError maps foreign key violations to the reference that was missing.
func classifyFKError(err error, op string) error {
	if !pkg.IsForeignKeyViolationError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if strings.Contains(pkg.PgConstraintName(err), "workout_plan_id") {
		return ErrUnknownPlan
	}
	return ErrUnknownExercise
}

func getLog(ctx context.Context, q querier, id int) (*WorkoutLog, error) {
	logs, err := queryLogs(
		ctx, q,
		`SELECT `+logColumns+` `+logFrom+`
		WHERE wl.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, ErrWorkoutNotFound
	}
	return &logs[0], nil
}

// queryLogs runs the log query, then loads the sets of all returned logs in one go.
func queryLogs(ctx context.Context, q querier, sql string, args ...any) ([]WorkoutLog, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query workout logs: %w", err)
	}

	logs := make([]WorkoutLog, 0)
	index := make(map[int]int)
	for rows.Next() {
		var (
			wl   WorkoutLog
			plan struct {
				id          *int
				name        *string
				description *string
				notes       *string
				createdAt   *time.Time
				updatedAt   *time.Time
			}
		)
		if err := rows.Scan(
			&wl.ID, &wl.WorkoutPlanID, &wl.Name, &wl.Notes, &wl.PerformedAt, &wl.CreatedAt,
			&plan.id, &plan.name, &plan.description, &plan.notes, &plan.createdAt, &plan.updatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if plan.id != nil {
			wl.WorkoutPlan = &PlanSummary{
				ID:          *plan.id,
				Name:        *plan.name,
				Description: plan.description,
				Notes:       plan.notes,
				CreatedAt:   *plan.createdAt,
				UpdatedAt:   *plan.updatedAt,
			}
		}
		wl.Sets = make([]WorkoutSet, 0)
		index[wl.ID] = len(logs)
		logs = append(logs, wl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return logs, nil
	}

	ids := make([]int, 0, len(logs))
	for _, wl := range logs {
		ids = append(ids, wl.ID)
	}

	setRows, err := q.Query(
		ctx,
		`SELECT ws.id, ws.workout_log_id, ws.exercise_id, ws.set_number, ws.weight::float8, ws.reps,
				ws.notes, ws.completed, ws.created_at, `+exercises.SelectColumns("e")+`
		FROM workout_sets ws
			JOIN exercises e ON e.id = ws.exercise_id
		WHERE ws.workout_log_id = ANY($1)
		ORDER BY ws.workout_log_id, ws.set_number ASC, ws.id ASC;`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query workout sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var ws WorkoutSet
		dest := []any{
			&ws.ID, &ws.WorkoutLogID, &ws.ExerciseID, &ws.SetNumber, &ws.Weight, &ws.Reps,
			&ws.Notes, &ws.Completed, &ws.CreatedAt,
		}
		dest = append(dest, exercises.ScanTargets(&ws.Exercise)...)
		if err := setRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		i := index[ws.WorkoutLogID]
		logs[i].Sets = append(logs[i].Sets, ws)
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
