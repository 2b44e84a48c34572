package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
)

type fakeLimiter struct {
	allowed map[string]int
	limit   int
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	if f.allowed == nil {
		f.allowed = map[string]int{}
	}
	f.allowed[key]++
	if f.allowed[key] > limit.Rate {
		return &redis_rate.Result{Limit: limit, Allowed: 0, RetryAfter: 1500 * time.Millisecond}, nil
	}
	return &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: limit.Rate - f.allowed[key]}, nil
}

func newRateLimitedRouter(limiter RequestRateLimiter, metricsManager *metrics.Manager, perMin int) *mux.Router {
	r := mux.NewRouter()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	r.HandleFunc("/api/exercises", ok).Methods("GET", "POST").Name("exercises")
	r.Use(RateLimit(limiter, metricsManager, perMin))
	return r
}

func TestRateLimit_WritesLimitedPerClient(t *testing.T) {
	limiter := &fakeLimiter{}
	metricsManager := metrics.NewTestManager()
	router := newRateLimitedRouter(limiter, metricsManager, 2)

	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/exercises", nil)
		req.RemoteAddr = ip + ":5555"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, post("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, post("1.1.1.1").Code)

	limited := post("1.1.1.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), "too many requests")

	// other clients are not affected
	assert.Equal(t, http.StatusOK, post("2.2.2.2").Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRateLimitedRequests))
	assert.Equal(t, "rl:exercises:1.1.1.1", limiter.keys[0])
}

func TestRateLimit_ReadsNotLimited(t *testing.T) {
	limiter := &fakeLimiter{}
	router := newRateLimitedRouter(limiter, nil, 1)

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/exercises", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Empty(t, limiter.keys)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis: connection refused")}
	router := newRateLimitedRouter(limiter, nil, 1)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/api/exercises", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, limiter.keys, 1)
}
