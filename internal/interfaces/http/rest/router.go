// Package rest wires the chi router, middleware stack and handlers.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coursegraph-backend/internal/config"
	"coursegraph-backend/internal/interfaces/http/rest/handlers"
	"coursegraph-backend/internal/interfaces/http/rest/middleware"
	"coursegraph-backend/internal/observability"
	graphservice "coursegraph-backend/internal/service/graph"
	"coursegraph-backend/internal/service/pathfinding"
	"coursegraph-backend/internal/service/prereq"
	"coursegraph-backend/pkg/common"
)

// Router creates and configures the HTTP router.
type Router struct {
	cfg       *config.Config
	graphs    *graphservice.Service
	paths     *pathfinding.Service
	prereqs   *prereq.Service
	collector *observability.Collector
	logger    *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	cfg *config.Config,
	graphs *graphservice.Service,
	paths *pathfinding.Service,
	prereqs *prereq.Service,
	collector *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		graphs:    graphs,
		paths:     paths,
		prereqs:   prereqs,
		collector: collector,
		logger:    logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableTracing {
		router.Use(middleware.Tracing("coursegraph-backend"))
	}
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.collector.Registry(), promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		graphHandler := handlers.NewGraphHandler(rt.graphs, rt.logger)
		learningHandler := handlers.NewLearningHandler(rt.paths, rt.prereqs, rt.logger)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", graphHandler.CreateNode)
			r.Get("/", graphHandler.SearchNodes)
			r.Get("/{nodeID}", graphHandler.GetNode)
			r.Put("/{nodeID}", graphHandler.UpdateNode)
			r.Delete("/{nodeID}", graphHandler.DeleteNode)
			r.Get("/{nodeID}/neighbors", graphHandler.GetNeighbors)
		})

		r.Get("/entities/{entityType}/{entityID}", graphHandler.GetNodeByEntity)

		r.Route("/edges", func(r chi.Router) {
			r.Post("/", graphHandler.CreateEdge)
			r.Get("/{edgeID}", graphHandler.GetEdge)
			r.Delete("/{edgeID}", graphHandler.DeleteEdge)
		})

		r.Post("/graph/import", graphHandler.ImportGraph)

		r.Get("/paths", learningHandler.FindLearningPath)
		r.Route("/courses", func(r chi.Router) {
			r.Get("/{entityID}/recommendations", learningHandler.GetRecommendations)
			r.Post("/{entityID}/prerequisites/check", learningHandler.CheckPrerequisites)
			r.Post("/sequence/validate", learningHandler.ValidateSequence)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"store":  rt.cfg.StoreType,
	})
}
