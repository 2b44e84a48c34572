package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/exercises"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrPlanNotFound    = errors.New("workout plan not found")
	ErrUnknownExercise = errors.New("referenced exercise does not exist")
)

// querier is satisfied by both the pool and a transaction.
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

func (r *Repo) Add(ctx context.Context, req CreateRequest) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plans.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var plan *Plan
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var id int
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO workout_plans (name, description, notes)
				VALUES ($1, $2, $3)
			RETURNING id;`,
			req.Name, req.Description, req.Notes,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}

		if err := insertEntries(ctx, tx, id, req.Exercises); err != nil {
			return err
		}

		var err error
		plan, err = getPlan(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("plan.id", plan.ID),
		attribute.Int("plan.exercises", len(plan.Exercises)),
	)
	return plan, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plans.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	return getPlan(ctx, r.db, id)
}

// List returns all plans, newest first, each with its ordered exercises.
func (r *Repo) List(ctx context.Context) (_ []Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plans.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	plans, err := queryPlans(
		ctx, r.db,
		`SELECT id, name, description, notes, created_at, updated_at
		FROM workout_plans
		ORDER BY created_at DESC, id DESC;`,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(plans)))
	return plans, nil
}

// Update applies the patch in a single transaction. When the patch carries an
// exercise list, all existing entries are removed and the new ones inserted.
func (r *Repo) Update(ctx context.Context, id int, patch Patch) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plans.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("id", id),
		attribute.Bool("replace.exercises", patch.ReplacesExercises()),
	)

	var plan *Plan
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(
			ctx,
			`UPDATE workout_plans
				SET name        = COALESCE($1, name),
					description = COALESCE($2, description),
					notes       = COALESCE($3, notes),
					updated_at  = now()
			WHERE id = $4;`,
			patch.Name, patch.Description, patch.Notes, id,
		)
		if err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPlanNotFound
		}

		if patch.ReplacesExercises() {
			if _, err := tx.Exec(ctx, `DELETE FROM workout_plan_exercises WHERE workout_plan_id = $1;`, id); err != nil {
				return fmt.Errorf("delete plan exercises: %w", err)
			}
			if err := insertEntries(ctx, tx, id, patch.Exercises); err != nil {
				return err
			}
		}

		plan, err = getPlan(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return plan, nil
}

// Delete removes the plan and its entries. Logs based on it keep existing without a plan.
func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plans.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_plans WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, planID int, entries []EntryInput) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO workout_plan_exercises
				(workout_plan_id, exercise_id, order_index, target_sets, target_reps, notes, superset_group, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			planID, e.ExerciseID, *e.OrderIndex, e.TargetSets, e.TargetReps, e.Notes, e.SupersetGroup, e.Category,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return ErrUnknownExercise
		}
		return fmt.Errorf("insert plan exercises: %w", err)
	}
	return nil
}

func getPlan(ctx context.Context, q querier, id int) (*Plan, error) {
	plans, err := queryPlans(
		ctx, q,
		`SELECT id, name, description, notes, created_at, updated_at
		FROM workout_plans
		WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrPlanNotFound
	}
	return &plans[0], nil
}

// queryPlans runs the plan query, then loads the entries of all returned plans in one go.
func queryPlans(ctx context.Context, q querier, sql string, args ...any) ([]Plan, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}

	plans := make([]Plan, 0)
	index := make(map[int]int)
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		p.Exercises = make([]PlanExercise, 0)
		index[p.ID] = len(plans)
		plans = append(plans, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return plans, nil
	}

	ids := make([]int, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}

	entryRows, err := q.Query(
		ctx,
		`SELECT pe.id, pe.workout_plan_id, pe.exercise_id, pe.order_index, pe.target_sets, pe.target_reps,
				pe.notes, pe.superset_group, pe.category, pe.created_at, `+exercises.SelectColumns("e")+`
		FROM workout_plan_exercises pe
			JOIN exercises e ON e.id = pe.exercise_id
		WHERE pe.workout_plan_id = ANY($1)
		ORDER BY pe.workout_plan_id, pe.order_index ASC, pe.id ASC;`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query plan exercises: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var pe PlanExercise
		dest := []any{
			&pe.ID, &pe.WorkoutPlanID, &pe.ExerciseID, &pe.OrderIndex, &pe.TargetSets, &pe.TargetReps,
			&pe.Notes, &pe.SupersetGroup, &pe.Category, &pe.CreatedAt,
		}
		dest = append(dest, exercises.ScanTargets(&pe.Exercise)...)
		if err := entryRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		i := index[pe.WorkoutPlanID]
		plans[i].Exercises = append(plans[i].Exercises, pe)
	}
	if err := entryRows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}
