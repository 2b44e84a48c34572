package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests and responses: parses input, calls the service, formats MCP result.
type Handler struct {
	service contextService
}

// NewHandler builds a handler with the given service.
func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

// NoInput is the input of tools that take no arguments.
type NoInput struct{}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// GetWorkoutsSchemaTool returns the MCP tool handler for get_workouts_schema.
func (h *Handler) GetWorkoutsSchemaTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return errorResult("Error fetching schema: " + err.Error()), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

// ListExercisesTool returns the MCP tool handler for list_exercises.
func (h *Handler) ListExercisesTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		list, err := h.service.ListExercises(ctx)
		if err != nil {
			return errorResult("Error listing exercises: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

// ListWorkoutPlansTool returns the MCP tool handler for list_workout_plans.
func (h *Handler) ListWorkoutPlansTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		list, err := h.service.ListPlans(ctx)
		if err != nil {
			return errorResult("Error listing workout plans: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

// RecentWorkoutsInput is the input for list_recent_workouts.
type RecentWorkoutsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of workouts to return (default 10, max 100)"`
}

// ListRecentWorkoutsTool returns the MCP tool handler for list_recent_workouts.
func (h *Handler) ListRecentWorkoutsTool() func(context.Context, *mcp.CallToolRequest, RecentWorkoutsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RecentWorkoutsInput) (*mcp.CallToolResult, any, error) {
		list, err := h.service.ListRecentWorkouts(ctx, in.Limit)
		if err != nil {
			return errorResult("Error listing workouts: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

// LastWeightsInput is the input for get_last_weights.
type LastWeightsInput struct {
	ExerciseIDs []int `json:"exercise_ids" jsonschema:"Exercise ids to look up (e.g. [1, 4])"`
}

// GetLastWeightsTool returns the MCP tool handler for get_last_weights.
func (h *Handler) GetLastWeightsTool() func(context.Context, *mcp.CallToolRequest, LastWeightsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in LastWeightsInput) (*mcp.CallToolResult, any, error) {
		weights, err := h.service.GetLastWeights(ctx, in.ExerciseIDs)
		if err != nil {
			return errorResult("Error fetching last weights: " + err.Error()), nil, nil
		}
		return jsonResult(weights), nil, nil
	}
}
