package exercises

import (
	"strings"
	"time"
)

type Exercise struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	GifURL       *string   `json:"gifUrl"`
	UsesWeight   bool      `json:"usesWeight"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Name         string  `json:"name" validate:"required,notblank,max=255"`
	Instructions string  `json:"instructions" validate:"required,notblank"`
	GifURL       *string `json:"gifUrl" validate:"omitempty,optional_http_url,max=500"`
	UsesWeight   *bool   `json:"usesWeight"`
}

// ToExercise fills in creation defaults: exercises use weight unless told otherwise.
func (req CreateRequest) ToExercise() Exercise {
	usesWeight := true
	if req.UsesWeight != nil {
		usesWeight = *req.UsesWeight
	}
	return Exercise{
		Name:         strings.TrimSpace(req.Name),
		Instructions: req.Instructions,
		GifURL:       normalizeURL(req.GifURL),
		UsesWeight:   usesWeight,
	}
}

// Patch is a partial update, nil fields are left unchanged.
// An empty gifUrl removes the media link.
type Patch struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=255"`
	Instructions *string `json:"instructions" validate:"omitempty,notblank"`
	GifURL       *string `json:"gifUrl" validate:"omitempty,optional_http_url,max=500"`
	UsesWeight   *bool   `json:"usesWeight"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Instructions == nil && p.GifURL == nil && p.UsesWeight == nil
}

func (p Patch) Apply(e *Exercise) {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Instructions != nil {
		e.Instructions = *p.Instructions
	}
	if p.GifURL != nil {
		e.GifURL = normalizeURL(p.GifURL)
	}
	if p.UsesWeight != nil {
		e.UsesWeight = *p.UsesWeight
	}
}

func normalizeURL(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
