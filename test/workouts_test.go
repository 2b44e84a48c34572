//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/workouttracker/internal/exercises"
	"github.com/2beens/workouttracker/internal/misc"
	"github.com/2beens/workouttracker/internal/plans"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

func (s *IntegrationTestSuite) addExercise(name string, usesWeight bool) exercises.Exercise {
	var ex exercises.Exercise
	status := s.doJSON(http.MethodPost, "/api/exercises", map[string]any{
		"name":         name,
		"instructions": gofakeit.Sentence(8),
		"usesWeight":   usesWeight,
	}, &ex)
	require.Equal(s.T(), http.StatusCreated, status)
	return ex
}

func (s *IntegrationTestSuite) TestHealth() {
	var health misc.HealthResponse
	status := s.doJSON(http.MethodGet, "/health", nil, &health)
	require.Equal(s.T(), http.StatusOK, status)
	assert.Equal(s.T(), "ok", health.Status)
	assert.Equal(s.T(), "ok", health.Postgres)
	assert.Equal(s.T(), "ok", health.Redis)
}

func (s *IntegrationTestSuite) TestExercises() {
	t := s.T()

	bench := s.addExercise("Bench Press", true)
	assert.NotZero(t, bench.ID)

	var errResp pkg.ErrorResponse
	status := s.doJSON(http.MethodPost, "/api/exercises", map[string]any{
		"name":         "Bench Press",
		"instructions": "again",
	}, &errResp)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, errResp.Details)
	assert.Equal(t, "name", errResp.Details[0].Field)

	var list []exercises.Exercise
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/api/exercises", nil, &list))
	require.Len(t, list, 1)

	var updated exercises.Exercise
	status = s.doJSON(http.MethodPut, fmt.Sprintf("/api/exercises/%d", bench.ID), map[string]any{
		"gifUrl": "https://example.com/bench.gif",
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, updated.GifURL)
	assert.Equal(t, "Bench Press", updated.Name)

	// the list cache is invalidated by the update
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/api/exercises", nil, &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].GifURL)

	require.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/exercises/%d", bench.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodGet, fmt.Sprintf("/api/exercises/%d", bench.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/exercises/%d", bench.ID), nil, nil))
}

func (s *IntegrationTestSuite) TestPlans() {
	t := s.T()

	squat := s.addExercise("Squat", true)
	pullup := s.addExercise("Pull Up", false)
	lunge := s.addExercise("Lunge", true)

	var plan plans.Plan
	status := s.doJSON(http.MethodPost, "/api/workout-plans", map[string]any{
		"name": "Full Body",
		"exercises": []map[string]any{
			{"exerciseId": pullup.ID, "orderIndex": 1, "targetSets": 3},
			{"exerciseId": squat.ID, "orderIndex": 0, "targetSets": 5, "targetReps": 5},
			{"exerciseId": lunge.ID, "orderIndex": 2},
		},
	}, &plan)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, plan.Exercises, 3)
	assert.Equal(t, squat.ID, plan.Exercises[0].ExerciseID)
	assert.Equal(t, "Squat", plan.Exercises[0].Exercise.Name)
	assert.Equal(t, pullup.ID, plan.Exercises[1].ExerciseID)

	// omitted exercises leave the links untouched
	var got plans.Plan
	status = s.doJSON(http.MethodPut, fmt.Sprintf("/api/workout-plans/%d", plan.ID), map[string]any{
		"name": "Full Body A",
	}, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Full Body A", got.Name)
	assert.Len(t, got.Exercises, 3)

	// deleting an exercise removes only its link
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/exercises/%d", lunge.ID), nil, nil))
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, fmt.Sprintf("/api/workout-plans/%d", plan.ID), nil, &got))
	assert.Len(t, got.Exercises, 2)

	// an empty array clears the links
	status = s.doJSON(http.MethodPut, fmt.Sprintf("/api/workout-plans/%d", plan.ID), map[string]any{
		"exercises": []any{},
	}, &got)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, got.Exercises)
	assert.Empty(t, got.Exercises)

	var errResp pkg.ErrorResponse
	status = s.doJSON(http.MethodPost, "/api/workout-plans", map[string]any{
		"name":      "Broken",
		"exercises": []map[string]any{{"exerciseId": 99999, "orderIndex": 0}},
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	var list []plans.Plan
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/api/workout-plans", nil, &list))
	assert.Len(t, list, 1)
}

func (s *IntegrationTestSuite) TestWorkoutsAndLastWeights() {
	t := s.T()

	bench := s.addExercise("Bench", true)
	dips := s.addExercise("Dips", false)

	var plan plans.Plan
	require.Equal(t, http.StatusCreated, s.doJSON(http.MethodPost, "/api/workout-plans", map[string]any{
		"name":      "Push",
		"exercises": []map[string]any{{"exerciseId": bench.ID, "orderIndex": 0}},
	}, &plan))

	older := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
	var first workouts.WorkoutLog
	status := s.doJSON(http.MethodPost, "/api/workouts", map[string]any{
		"workoutPlanId": plan.ID,
		"performedAt":   older,
		"sets": []map[string]any{
			{"exerciseId": bench.ID, "setNumber": 1, "weight": 80, "reps": 8},
			{"exerciseId": bench.ID, "setNumber": 2, "weight": 82.5, "reps": 6},
		},
	}, &first)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, first.Sets, 2)
	require.NotNil(t, first.WorkoutPlan)
	assert.Equal(t, "Push", first.WorkoutPlan.Name)

	var second workouts.WorkoutLog
	status = s.doJSON(http.MethodPost, "/api/workouts", map[string]any{
		"name": "Tuesday",
		"sets": []map[string]any{
			{"exerciseId": bench.ID, "setNumber": 1, "weight": 85, "reps": 5, "completed": true},
			{"exerciseId": dips.ID, "setNumber": 1, "reps": 12},
		},
	}, &second)
	require.Equal(t, http.StatusCreated, status)

	var list []workouts.WorkoutLog
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, "/api/workouts", nil, &list))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	var weights map[string][]workouts.LastWeight
	status = s.doJSON(http.MethodGet, fmt.Sprintf("/api/workouts/last-weights?exerciseIds=%d,%d", bench.ID, dips.ID), nil, &weights)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []workouts.LastWeight{
		{Weight: 85, Reps: 5, SetNumber: 1},
		{Weight: 82.5, Reps: 6, SetNumber: 2},
	}, weights[fmt.Sprint(bench.ID)])
	assert.Equal(t, []workouts.LastWeight{
		{Weight: 0, Reps: 12, SetNumber: 1},
	}, weights[fmt.Sprint(dips.ID)])

	// plan delete keeps the log, without the plan reference
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/workout-plans/%d", plan.ID), nil, nil))
	var got workouts.WorkoutLog
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, fmt.Sprintf("/api/workouts/%d", first.ID), nil, &got))
	assert.Nil(t, got.WorkoutPlanID)
	assert.Nil(t, got.WorkoutPlan)
	assert.Len(t, got.Sets, 2)

	// exercise delete cascades to its sets
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/exercises/%d", dips.ID), nil, nil))
	require.Equal(t, http.StatusOK, s.doJSON(http.MethodGet, fmt.Sprintf("/api/workouts/%d", second.ID), nil, &got))
	assert.Len(t, got.Sets, 1)

	require.Equal(t, http.StatusOK, s.doJSON(http.MethodDelete, fmt.Sprintf("/api/workouts/%d", second.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, s.doJSON(http.MethodGet, fmt.Sprintf("/api/workouts/%d", second.ID), nil, nil))
}

func (s *IntegrationTestSuite) TestMCP() {
	t := s.T()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.addExercise("Deadlift", true)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: s.httpServer.URL + "/mcp"}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "list_exercises", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Deadlift")

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "get_workouts_schema", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text, ok = res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "## workout_sets")
}
