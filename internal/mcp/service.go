package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/2beens/workouttracker/internal/db"
	"github.com/2beens/workouttracker/internal/exercises"
	"github.com/2beens/workouttracker/internal/plans"
	"github.com/2beens/workouttracker/internal/workouts"
)

const (
	defaultRecentWorkouts = 10
	maxRecentWorkouts     = 100
)

type exercisesRepo interface {
	List(ctx context.Context) ([]exercises.Exercise, error)
}

type plansRepo interface {
	List(ctx context.Context) ([]plans.Plan, error)
}

type workoutsRepo interface {
	ListRecent(ctx context.Context, limit int) ([]workouts.WorkoutLog, error)
	LastWeights(ctx context.Context, exerciseIDs []int) (map[int][]workouts.LastWeight, error)
}

// contextService provides workout tracker context data for the MCP tools.
// Used by Handler for testability.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	ListExercises(ctx context.Context) ([]exercises.Exercise, error)
	ListPlans(ctx context.Context) ([]plans.Plan, error)
	ListRecentWorkouts(ctx context.Context, limit int) ([]workouts.WorkoutLog, error)
	GetLastWeights(ctx context.Context, exerciseIDs []int) (map[int][]workouts.LastWeight, error)
}

// ContextService holds dependencies and implements the workout context business logic.
type ContextService struct {
	schema    SchemaRepo
	exercises exercisesRepo
	plans     plansRepo
	workouts  workoutsRepo
}

// NewContextService builds a ContextService with the given dependencies.
func NewContextService(
	schemaRepo SchemaRepo,
	exercisesRepo exercisesRepo,
	plansRepo plansRepo,
	workoutsRepo workoutsRepo,
) *ContextService {
	return &ContextService{
		schema:    schemaRepo,
		exercises: exercisesRepo,
		plans:     plansRepo,
		workouts:  workoutsRepo,
	}
}

// GetSchema returns the DB schema (table names, columns, types) of the workout tracker tables.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	cols, err := s.schema.GetWorkoutsColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatWorkoutsSchema(cols), nil
}

func formatWorkoutsSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# Workout Tracker DB Schema\n\nNo workout tracker tables found in the database.\n"
	}

	byTable := make(map[string][]SchemaColumn)
	for _, c := range cols {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}

	tableOrder := make([]string, 0, len(byTable))
	for t := range byTable {
		tableOrder = append(tableOrder, t)
	}
	sort.Strings(tableOrder)

	var b strings.Builder
	b.WriteString("# Workout Tracker DB Schema\n\n")
	b.WriteString("Tables: ")
	b.WriteString(strings.Join(db.Tables, ", "))
	b.WriteString(" (schema: public).\n\n")

	for _, tableName := range tableOrder {
		b.WriteString("## ")
		b.WriteString(tableName)
		b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|--------|\n")
		for _, c := range byTable[tableName] {
			def := "-"
			if c.ColumnDef != nil && *c.ColumnDef != "" {
				def = *c.ColumnDef
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def)
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n\n") + "\n"
}

// ListExercises returns the whole exercise catalog.
func (s *ContextService) ListExercises(ctx context.Context) ([]exercises.Exercise, error) {
	return s.exercises.List(ctx)
}

// ListPlans returns all workout plans with their exercise entries.
func (s *ContextService) ListPlans(ctx context.Context) ([]plans.Plan, error) {
	return s.plans.List(ctx)
}

// ListRecentWorkouts returns the most recent workout logs. A non-positive limit
// falls back to the default, and the limit is capped.
func (s *ContextService) ListRecentWorkouts(ctx context.Context, limit int) ([]workouts.WorkoutLog, error) {
	if limit <= 0 {
		limit = defaultRecentWorkouts
	}
	if limit > maxRecentWorkouts {
		limit = maxRecentWorkouts
	}
	return s.workouts.ListRecent(ctx, limit)
}

// GetLastWeights returns the most recent weight per set number for each exercise.
func (s *ContextService) GetLastWeights(ctx context.Context, exerciseIDs []int) (map[int][]workouts.LastWeight, error) {
	ids := make([]int, 0, len(exerciseIDs))
	seen := make(map[int]bool, len(exerciseIDs))
	for _, id := range exerciseIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: %d", workouts.ErrInvalidExerciseIDs, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[int][]workouts.LastWeight{}, nil
	}
	return s.workouts.LastWeights(ctx, ids)
}
