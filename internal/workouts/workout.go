package workouts

import (
	"strings"
	"time"

	"github.com/2beens/workouttracker/internal/exercises"
)

// PlanSummary is the plan a log was based on, without its exercises.
type PlanSummary struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type WorkoutLog struct {
	ID            int          `json:"id"`
	WorkoutPlanID *int         `json:"workoutPlanId"`
	Name          *string      `json:"name"`
	Notes         *string      `json:"notes"`
	PerformedAt   time.Time    `json:"performedAt"`
	CreatedAt     time.Time    `json:"createdAt"`
	WorkoutPlan   *PlanSummary `json:"workoutPlan"`
	Sets          []WorkoutSet `json:"sets"`
}

type WorkoutSet struct {
	ID           int                `json:"id"`
	WorkoutLogID int                `json:"workoutLogId"`
	ExerciseID   int                `json:"exerciseId"`
	SetNumber    int                `json:"setNumber"`
	Weight       *float64           `json:"weight"`
	Reps         int                `json:"reps"`
	Notes        *string            `json:"notes"`
	Completed    bool               `json:"completed"`
	CreatedAt    time.Time          `json:"createdAt"`
	Exercise     exercises.Exercise `json:"exercise"`
}

// SetInput is one performed set as sent by the client. Weight is omitted for bodyweight work.
type SetInput struct {
	ExerciseID int      `json:"exerciseId" validate:"required,gt=0"`
	SetNumber  int      `json:"setNumber" validate:"required,gte=1"`
	Weight     *float64 `json:"weight" validate:"omitempty,gte=0"`
	Reps       *int     `json:"reps" validate:"required,gte=0"`
	Notes      *string  `json:"notes"`
	Completed  *bool    `json:"completed"`
}

func (s SetInput) completed() bool {
	return s.Completed != nil && *s.Completed
}

// CreateRequest describes a new log. Sets may be omitted or empty.
type CreateRequest struct {
	WorkoutPlanID *int       `json:"workoutPlanId" validate:"omitempty,gt=0"`
	Name          *string    `json:"name" validate:"omitempty,max=255"`
	Notes         *string    `json:"notes"`
	PerformedAt   *time.Time `json:"performedAt"`
	Sets          []SetInput `json:"sets" validate:"omitempty,dive"`
}

func (req *CreateRequest) normalize() {
	req.Name = trimmedOrNil(req.Name)
}

// Patch is a partial log update. A non-nil Sets, even empty,
// replaces every set of the log. Nil leaves the sets untouched.
type Patch struct {
	WorkoutPlanID *int       `json:"workoutPlanId" validate:"omitempty,gt=0"`
	Name          *string    `json:"name" validate:"omitempty,max=255"`
	Notes         *string    `json:"notes"`
	PerformedAt   *time.Time `json:"performedAt"`
	Sets          []SetInput `json:"sets" validate:"omitempty,dive"`
}

func (p *Patch) normalize() {
	p.Name = trimmedOrNil(p.Name)
}

// ReplacesSets reports whether the patch carries a new set list.
func (p Patch) ReplacesSets() bool {
	return p.Sets != nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
