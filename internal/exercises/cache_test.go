package exercises

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
)

func TestListCache(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	c := NewListCache(1, time.Minute, metricsManager)

	_, ok := c.Get()
	assert.False(t, ok)

	c.Set([]byte(`[{"id":1,"name":"Bench Press"}]`))
	val, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1,"name":"Bench Press"}]`, string(val))

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterExerciseCache.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterExerciseCache.WithLabelValues("miss")))
}

func TestListCache_Nil(t *testing.T) {
	var c *ListCache
	assert.NotPanics(t, func() {
		c.Set([]byte("x"))
		c.Invalidate()
	})
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestPatch_Apply(t *testing.T) {
	gif := "https://example.com/squat.gif"
	e := Exercise{ID: 1, Name: "Squat", Instructions: "Sit back", GifURL: &gif, UsesWeight: true}

	newName := "  Back Squat "
	empty := ""
	noWeight := false
	Patch{Name: &newName, GifURL: &empty, UsesWeight: &noWeight}.Apply(&e)

	assert.Equal(t, "Back Squat", e.Name)
	assert.Equal(t, "Sit back", e.Instructions)
	assert.Nil(t, e.GifURL)
	assert.False(t, e.UsesWeight)

	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{UsesWeight: &noWeight}.IsEmpty())
}

func TestCreateRequest_ToExercise(t *testing.T) {
	ex := CreateRequest{Name: "Push Up", Instructions: "Push"}.ToExercise()
	assert.True(t, ex.UsesWeight)
	assert.Nil(t, ex.GifURL)

	no := false
	gif := " https://example.com/pushup.gif "
	ex = CreateRequest{Name: "Push Up", Instructions: "Push", UsesWeight: &no, GifURL: &gif}.ToExercise()
	assert.False(t, ex.UsesWeight)
	assert.Equal(t, "https://example.com/pushup.gif", *ex.GifURL)
}
