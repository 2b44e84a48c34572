package plans

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

//go:generate mockgen -source=$GOFILE -destination=plans_mocks_test.go -package=plans_test

type plansRepo interface {
	Add(ctx context.Context, req CreateRequest) (*Plan, error)
	Get(ctx context.Context, id int) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Update(ctx context.Context, id int, patch Patch) (*Plan, error)
	Delete(ctx context.Context, id int) error
}

type DeletePlanResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo           plansRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo plansRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/workout-plans", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workout-plans")
	r.HandleFunc("/api/workout-plans", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout-plan")
	r.HandleFunc("/api/workout-plans/{id:[0-9]+}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout-plan")
	r.HandleFunc("/api/workout-plans/{id:[0-9]+}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout-plan")
	r.HandleFunc("/api/workout-plans/{id:[0-9]+}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout-plan")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.list")
	defer span.End()

	plans, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("failed to list workout plans: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list workout plans", nil)
		return
	}

	pkg.WriteJSON(w, plans, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.get")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout plan id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	plan, err := handler.repo.Get(ctx, id)
	if err != nil {
		handler.writeRepoError(w, "get", id, err)
		return
	}

	pkg.WriteJSON(w, plan, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.new")
	defer span.End()

	var req CreateRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("new workout plan, validate request: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to create workout plan", nil)
		}
		return
	}
	req.normalize()

	plan, err := handler.repo.Add(ctx, req)
	if err != nil {
		handler.writeRepoError(w, "create", 0, err)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterPlansCreated.Inc()
	}

	log.Debugf("new workout plan added: %d [%s], exercises: %d", plan.ID, plan.Name, len(plan.Exercises))
	pkg.WriteJSON(w, plan, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.update")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout plan id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	var patch Patch
	if err := validation.DecodeAndValidate(r, &patch); err != nil {
		if !validation.HandleError(w, err) {
			log.Errorf("update workout plan %d, validate request: %s", id, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to update workout plan", nil)
		}
		return
	}
	patch.normalize()

	plan, err := handler.repo.Update(ctx, id, patch)
	if err != nil {
		handler.writeRepoError(w, "update", id, err)
		return
	}

	pkg.WriteJSON(w, plan, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.delete")
	defer span.End()

	id, err := pkg.PathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout plan id", nil)
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	if err := handler.repo.Delete(ctx, id); err != nil {
		handler.writeRepoError(w, "delete", id, err)
		return
	}

	log.Debugf("workout plan %d deleted", id)
	pkg.WriteJSON(w, DeletePlanResponse{DeletedID: id}, http.StatusOK)
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, op string, id int, err error) {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, ErrPlanNotFound.Error(), nil)
	case errors.Is(err, ErrUnknownExercise):
		validation.WriteError(w, validation.NewFieldError("exercises", ErrUnknownExercise.Error()))
	default:
		log.Errorf("failed to %s workout plan [%d]: %s", op, id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to "+op+" workout plan", nil)
	}
}
