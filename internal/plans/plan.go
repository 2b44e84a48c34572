package plans

import (
	"strings"
	"time"

	"github.com/2beens/workouttracker/internal/exercises"
)

type Plan struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Notes       *string        `json:"notes"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Exercises   []PlanExercise `json:"exercises"`
}

// PlanExercise links an exercise into a plan at a given position.
// Entries sharing a non-nil SupersetGroup are performed back to back.
type PlanExercise struct {
	ID            int                `json:"id"`
	WorkoutPlanID int                `json:"workoutPlanId"`
	ExerciseID    int                `json:"exerciseId"`
	OrderIndex    int                `json:"orderIndex"`
	TargetSets    *int               `json:"targetSets"`
	TargetReps    *int               `json:"targetReps"`
	Notes         *string            `json:"notes"`
	SupersetGroup *int               `json:"supersetGroup"`
	Category      *string            `json:"category"`
	CreatedAt     time.Time          `json:"createdAt"`
	Exercise      exercises.Exercise `json:"exercise"`
}

// EntryInput is one plan exercise as sent by the client.
type EntryInput struct {
	ExerciseID    int     `json:"exerciseId" validate:"required,gt=0"`
	OrderIndex    *int    `json:"orderIndex" validate:"required,gte=0"`
	TargetSets    *int    `json:"targetSets" validate:"omitempty,gte=0"`
	TargetReps    *int    `json:"targetReps" validate:"omitempty,gte=0"`
	Notes         *string `json:"notes"`
	SupersetGroup *int    `json:"supersetGroup" validate:"omitempty,gte=0"`
	Category      *string `json:"category" validate:"omitempty,max=50"`
}

type CreateRequest struct {
	Name        string       `json:"name" validate:"required,notblank,max=255"`
	Description *string      `json:"description"`
	Notes       *string      `json:"notes"`
	Exercises   []EntryInput `json:"exercises" validate:"omitempty,dive"`
}

func (req *CreateRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
}

// Patch is a partial plan update. A non-nil Exercises, even empty,
// replaces the whole exercise list. Nil leaves the list untouched.
type Patch struct {
	Name        *string      `json:"name" validate:"omitempty,notblank,max=255"`
	Description *string      `json:"description"`
	Notes       *string      `json:"notes"`
	Exercises   []EntryInput `json:"exercises" validate:"omitempty,dive"`
}

func (p *Patch) normalize() {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
}

// ReplacesExercises reports whether the patch carries a new exercise list.
func (p Patch) ReplacesExercises() bool {
	return p.Exercises != nil
}
