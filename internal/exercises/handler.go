package exercises

import (
	"context"
	"encoding/json"
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

//go:generate mockgen -source=$GOFILE -destination=exercises_mocks_test.go -package=exercises_test

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id int) (*Exercise, error)
	List(ctx context.Context) ([]Exercise, error)
	Update(ctx context.Context, id int, patch Patch) (*Exercise, error)
	Delete(ctx context.Context, id int) error
}

type DeleteExerciseResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo           exercisesRepo
	cache          *ListCache
	metricsManager *metrics.Manager
}

func NewHandler(repo exercisesRepo, cache *ListCache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		cache:          cache,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/exercises", handler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/api/exercises", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/api/exercises/{id:[0-9]+}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	r.HandleFunc("/api/exercises/{id:[0-9]+}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/api/exercises/{id:[0-9]+}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	if cached, ok := handler.cache.Get(); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	list, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("failed to list exercises: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list exercises", nil)
		return
	}

	listJson, err := json.Marshal(list)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list exercises", nil)
		return
	}

	handler.cache.Set(listJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid exercise id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		handler.writeRepoError(w, "get", id, err)
		return
	}

	pkg.WriteJSON(w, exercise, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.new")
	defer span.End()

	var req CreateRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("new exercise, validate request: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to create exercise", nil)
		}
		return
	}

	added, err := handler.repo.Add(ctx, req.ToExercise())
	if err != nil {
		handler.writeRepoError(w, "create", 0, err)
		return
	}

	handler.cache.Invalidate()
	if handler.metricsManager != nil {
		handler.metricsManager.CounterExercisesCreated.Inc()
	}

	log.Debugf("new exercise added: %d [%s]", added.ID, added.Name)
	pkg.WriteJSON(w, added, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid exercise id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	var patch Patch
	if err := validation.DecodeAndValidate(r, &patch); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("update exercise %d, validate request: %s", id, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to update exercise", nil)
		}
		return
	}

	updated, err := handler.repo.Update(ctx, id, patch)
	if err != nil {
		handler.writeRepoError(w, "update", id, err)
		return
	}

	handler.cache.Invalidate()
	pkg.WriteJSON(w, updated, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid exercise id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	if err := handler.repo.Delete(ctx, id); err != nil {
		handler.writeRepoError(w, "delete", id, err)
		return
	}

	handler.cache.Invalidate()
	log.Debugf("exercise %d deleted", id)
	pkg.WriteJSON(w, DeleteExerciseResponse{DeletedID: id}, http.StatusOK)
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, op string, id int, err error) {
	switch {
	case errors.Is(err, ErrExerciseNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, ErrExerciseNotFound.Error(), nil)
	case errors.Is(err, ErrExerciseNameTaken):
		validation.WriteError(w, validation.NewFieldError("name", "an exercise with this name already exists"))
	default:
		log.Errorf("failed to %s exercise [%d]: %s", op, id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to "+op+" exercise", nil)
	}
}
