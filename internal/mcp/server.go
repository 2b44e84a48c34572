package mcp

import (
	"net/http"

	"github.com/2beens/workouttracker/internal/exercises"
	"github.com/2beens/workouttracker/internal/plans"
	"github.com/2beens/workouttracker/internal/workouts"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewServer builds an MCP server with workout tracker tools: schema, exercises,
// workout plans, recent workouts and last weights.
// Used both by the backend (mounted at /mcp) and by cmd/workouts_mcp over stdio.
func NewServer(pool *pgxpool.Pool) *mcp.Server {
	svc := NewContextService(
		NewPoolSchemaRepo(pool),
		exercises.NewRepo(pool),
		plans.NewRepo(pool),
		workouts.NewRepo(pool),
	)
	return newServer(NewHandler(svc))
}

func newServer(h *Handler) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "workouts-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workouts_schema",
		Description: "Returns the DB schema of the workout tracker tables (exercises, workout_plans, workout_plan_exercises, workout_logs, workout_sets): columns, types, nullable, default.",
	}, h.GetWorkoutsSchemaTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_exercises",
		Description: "Returns the exercise catalog (id, name, instructions, gif url, uses weight).",
	}, h.ListExercisesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_workout_plans",
		Description: "Returns all workout plans with their ordered exercise entries (target sets, reps, superset group, category).",
	}, h.ListWorkoutPlansTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_recent_workouts",
		Description: "Returns the most recently performed workout logs with their sets. Optional arg: limit (default 10, max 100).",
	}, h.ListRecentWorkoutsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_last_weights",
		Description: "Returns, per exercise id, the most recent weight and reps per set number. Arg: exercise_ids (list of ints). Use when suggesting weights for the next session.",
	}, h.GetLastWeightsTool())

	return s
}

// NewHTTPHandler serves the given MCP server over streamable HTTP, traced with otelhttp.
func NewHTTPHandler(s *mcp.Server) http.Handler {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s
	}, nil)
	return otelhttp.NewHandler(handler, "mcp")
}
