package misc

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

const healthCheckTimeout = 2 * time.Second

const (
	checkOK       = "ok"
	checkError    = "error"
	checkDisabled = "disabled"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

type Handler struct {
	db          dbPinger
	redisClient *redis.Client
	versionInfo string
}

// NewHandler creates the service level handler. redisClient may be nil when
// rate limiting is not configured.
func NewHandler(db dbPinger, redisClient *redis.Client, versionInfo string) *Handler {
	return &Handler{
		db:          db,
		redisClient: redisClient,
		versionInfo: versionInfo,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
	mainRouter.HandleFunc("/myip", handler.handleGetMyIp).Methods("GET").Name("myip")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "workouts")
}

// handleHealth reports unavailable only when postgres cannot be reached.
// Redis only backs rate limiting, so its failure is reported but not fatal.
func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   checkOK,
		Version:  handler.versionInfo,
		Postgres: checkOK,
		Redis:    checkDisabled,
	}
	statusCode := http.StatusOK

	if err := handler.db.Ping(ctx); err != nil {
		log.Errorf("health check, ping postgres: %s", err)
		resp.Status = "unavailable"
		resp.Postgres = checkError
		statusCode = http.StatusServiceUnavailable
	}

	if handler.redisClient != nil {
		resp.Redis = checkOK
		if err := handler.redisClient.Ping(ctx).Err(); err != nil {
			log.Warnf("health check, ping redis: %s", err)
			resp.Redis = checkError
		}
	}

	span.SetAttributes(
		attribute.String("health.postgres", resp.Postgres),
		attribute.String("health.redis", resp.Redis),
	)
	pkg.WriteJSON(w, resp, statusCode)
}

func (handler *Handler) handleGetMyIp(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.getMyIp")
	defer span.End()

	ip := pkg.ClientIP(r)
	span.SetAttributes(attribute.String("user.ip", ip))
	pkg.WriteTextResponseOK(w, ip)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
