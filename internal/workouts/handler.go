package workouts

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/validation"
	"github.com/2beens/workouttracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, req CreateRequest) (*WorkoutLog, error)
	Get(ctx context.Context, id int) (*WorkoutLog, error)
	List(ctx context.Context) ([]WorkoutLog, error)
	Update(ctx context.Context, id int, patch Patch) (*WorkoutLog, error)
	Delete(ctx context.Context, id int) error
	LastWeights(ctx context.Context, exerciseIDs []int) (map[int][]LastWeight, error)
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo           workoutsRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/workouts", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/api/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/api/workouts/last-weights", handler.HandleLastWeights).Methods("GET", "OPTIONS").Name("last-weights")
	r.HandleFunc("/api/workouts/{id:[0-9]+}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/api/workouts/{id:[0-9]+}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	r.HandleFunc("/api/workouts/{id:[0-9]+}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	logs, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("failed to list workouts: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list workouts", nil)
		return
	}

	pkg.WriteJSON(w, logs, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	workout, err := handler.repo.Get(ctx, id)
	if err != nil {
		handler.writeRepoError(w, "get", id, err)
		return
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	var req CreateRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("new workout, validate request: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to create workout", nil)
		}
		return
	}
	req.normalize()

	workout, err := handler.repo.Add(ctx, req)
	if err != nil {
		handler.writeRepoError(w, "create", 0, err)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterWorkoutsLogged.Inc()
		handler.metricsManager.CounterSetsLogged.Add(float64(len(workout.Sets)))
	}

	log.Debugf("new workout logged: %d, sets: %d", workout.ID, len(workout.Sets))
	pkg.WriteJSON(w, workout, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	var patch Patch
	if err := validation.DecodeAndValidate(r, &patch); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("update workout %d, validate request: %s", id, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to update workout", nil)
		}
		return
	}
	patch.normalize()

	workout, err := handler.repo.Update(ctx, id, patch)
	if err != nil {
		handler.writeRepoError(w, "update", id, err)
		return
	}

	if patch.ReplacesSets() && handler.metricsManager != nil {
		handler.metricsManager.CounterSetsLogged.Add(float64(len(workout.Sets)))
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	if err := handler.repo.Delete(ctx, id); err != nil {
		handler.writeRepoError(w, "delete", id, err)
		return
	}

	log.Debugf("workout %d deleted", id)
	pkg.WriteJSON(w, DeleteWorkoutResponse{DeletedID: id}, http.StatusOK)
}

// HandleLastWeights serves GET /api/workouts/last-weights?exerciseIds=1,2,3
func (handler *Handler) HandleLastWeights(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.last_weights")
	defer span.End()

	exerciseIDs, err := ParseExerciseIDs(r.URL.Query().Get("exerciseIds"))
	if err != nil {
		validation.WriteError(w, validation.NewFieldError("exerciseIds", err.Error()))
		return
	}

	if len(exerciseIDs) == 0 {
		pkg.WriteJSON(w, map[int][]LastWeight{}, http.StatusOK)
		return
	}

	lastWeights, err := handler.repo.LastWeights(ctx, exerciseIDs)
	if err != nil {
		log.Errorf("failed to get last weights for %v: %s", exerciseIDs, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch last weights", nil)
		return
	}

	pkg.WriteJSON(w, lastWeights, http.StatusOK)
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, op string, id int, err error) {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, ErrWorkoutNotFound.Error(), nil)
	case errors.Is(err, ErrUnknownPlan):
		validation.WriteError(w, validation.NewFieldError("workoutPlanId", ErrUnknownPlan.Error()))
	case errors.Is(err, ErrUnknownExercise):
		validation.WriteError(w, validation.NewFieldError("sets", ErrUnknownExercise.Error()))
	default:
		log.Errorf("failed to %s workout [%d]: %s", op, id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to "+op+" workout", nil)
	}
}
