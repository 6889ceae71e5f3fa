package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	interviewHandler "github.com/zhouzirui/mockview/backend/internal/handler/interview"
	"github.com/zhouzirui/mockview/backend/internal/handler/persona"
	ratingHandler "github.com/zhouzirui/mockview/backend/internal/handler/rating"
	resumeHandler "github.com/zhouzirui/mockview/backend/internal/handler/resume"
	"github.com/zhouzirui/mockview/backend/internal/handler/stream"
	"github.com/zhouzirui/mockview/backend/internal/handler/ws"
	"github.com/zhouzirui/mockview/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/mockview/backend/internal/middleware"
	personaModel "github.com/zhouzirui/mockview/backend/internal/model/persona"
	interviewService "github.com/zhouzirui/mockview/backend/internal/service/interview"
	ratingService "github.com/zhouzirui/mockview/backend/internal/service/rating"
	resumeService "github.com/zhouzirui/mockview/backend/internal/service/resume"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
	"github.com/zhouzirui/mockview/backend/pkg/utils"
)

// Dependencies are the services the HTTP layer serves. Evaluator, RateLimiter and Gatherer
// are optional.
type Dependencies struct {
	Personas         personaModel.Store
	Engine           *interviewService.Engine
	Evaluator        interviewHandler.Evaluator
	Ratings          *ratingService.Service
	Resume           *resumeService.Extractor
	DefaultThreshold int
	RateLimiter      *middlewarePkg.RateLimiter
	Metrics          metrics.Recorder
	Gatherer         prometheus.Gatherer
	Logger           logger.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Observe(deps.Metrics, deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(api chi.Router) {
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Middleware)
		}

		persona.New(deps.Personas).RegisterRoutes(api)
		interviewHandler.New(deps.Engine, deps.Evaluator, deps.Personas, deps.DefaultThreshold).RegisterRoutes(api)
		stream.New(deps.Engine).RegisterRoutes(api)
		ws.New(deps.Engine).RegisterRoutes(api)
		ratingHandler.New(deps.Ratings).RegisterRoutes(api)

		if deps.Resume != nil {
			resumeHandler.New(deps.Resume).RegisterRoutes(api)
		}
	})

	return r
}
