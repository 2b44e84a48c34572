package workouts

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// lastWeightsWindow bounds how many recent sets per exercise are considered.
const lastWeightsWindow = 10

var ErrInvalidExerciseIDs = errors.New("exerciseIds must be a comma separated list of positive integers")

type LastWeight struct {
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	SetNumber int     `json:"setNumber"`
}

// RecentSet is a candidate row for the last weights lookup.
type RecentSet struct {
	ExerciseID int
	SetNumber  int
	Weight     *float64
	Reps       int
}

// FoldLastWeights expects rows ordered most recent first within each exercise.
// It keeps the first row seen per (exercise, set number) and returns each
// exercise's sets ordered by set number.
func FoldLastWeights(rows []RecentSet) map[int][]LastWeight {
	type key struct {
		exerciseID int
		setNumber  int
	}

	result := make(map[int][]LastWeight)
	seen := make(map[key]struct{}, len(rows))
	for _, row := range rows {
		k := key{exerciseID: row.ExerciseID, setNumber: row.SetNumber}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		var weight float64
		if row.Weight != nil {
			weight = *row.Weight
		}
		result[row.ExerciseID] = append(result[row.ExerciseID], LastWeight{
			Weight:    weight,
			Reps:      row.Reps,
			SetNumber: row.SetNumber,
		})
	}

	for _, sets := range result {
		slices.SortFunc(sets, func(a, b LastWeight) int {
			return cmp.Compare(a.SetNumber, b.SetNumber)
		})
	}

	return result
}

// ParseExerciseIDs parses "1,2,3". Empty tokens are skipped and duplicates collapsed.
func ParseExerciseIDs(raw string) ([]int, error) {
	ids := make([]int, 0)
	seen := make(map[int]struct{})
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.Atoi(token)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidExerciseIDs, token)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
