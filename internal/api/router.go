package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autostack/gateway/internal/api/handlers"
	mw "github.com/autostack/gateway/internal/api/middleware"
	"github.com/autostack/gateway/internal/services"
)

type Dependencies struct {
	Auth           services.AuthService
	APIKeyHeader   string
	CallbackSecret string
	CORSOrigins    []string

	AuthHandler        *handlers.AuthHandler
	ProjectsHandler    *handlers.ProjectsHandler
	AnalysesHandler    *handlers.AnalysesHandler
	TemplatesHandler   *handlers.TemplatesHandler
	DeploymentsHandler *handlers.DeploymentsHandler
	CallbacksHandler   *handlers.CallbacksHandler
	HealthHandler      *handlers.HealthHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins, dep.APIKeyHeader))
	r.Use(chimid.Compress(5))

	// Health endpoints
	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Downstream completion reports
	r.Route("/internal/callbacks", func(cr chi.Router) {
		cr.Use(mw.CallbackAuth(dep.CallbackSecret))
		cr.Post("/analyses/{id}", dep.CallbacksHandler.Analysis)
		cr.Post("/deployments/{id}", dep.CallbacksHandler.Deployment)
	})

	r.Route("/api/v1", func(api chi.Router) {
		requireAuth := mw.Auth(dep.Auth, dep.APIKeyHeader)

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)

			ar.Group(func(me chi.Router) {
				me.Use(requireAuth)
				me.Get("/me", dep.AuthHandler.Me)
				me.Put("/profile", dep.AuthHandler.UpdateProfile)
				me.Post("/api-key", dep.AuthHandler.IssueAPIKey)
				me.Get("/usage", dep.AuthHandler.Usage)
			})
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(requireAuth)

			// Projects
			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Put("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)
				pr.Post("/{id}/upload", dep.ProjectsHandler.Upload)
			})

			// Analyses
			protected.Route("/analysis", func(ar chi.Router) {
				ar.Post("/analyze", dep.AnalysesHandler.Analyze)
				ar.Get("/project/{id}", dep.AnalysesHandler.ListByProject)
				ar.Get("/project/{id}/summary", dep.AnalysesHandler.Summary)
				ar.Get("/{id}", dep.AnalysesHandler.Get)
			})

			// Templates
			protected.Route("/templates", func(tr chi.Router) {
				tr.Post("/generate", dep.TemplatesHandler.Generate)
				tr.Get("/examples", dep.TemplatesHandler.Examples)
				tr.With(mw.RequireTier(services.TierForCostEstimate)).Post("/estimate-cost", dep.TemplatesHandler.EstimateCost)
				tr.Get("/project/{id}", dep.TemplatesHandler.ListByProject)
				tr.Get("/{id}", dep.TemplatesHandler.Get)
				tr.Get("/{id}/download", dep.TemplatesHandler.Download)
				tr.With(mw.RequireTier(services.TierForOptimize)).Post("/{id}/optimize", dep.TemplatesHandler.Optimize)
			})

			// Deployments
			protected.Route("/deployments", func(dr chi.Router) {
				dr.Get("/", dep.DeploymentsHandler.List)
				dr.With(mw.RequireTier(services.TierForDeploy)).Post("/deploy", dep.DeploymentsHandler.Deploy)
				dr.Get("/project/{id}", dep.DeploymentsHandler.ListByProject)
				dr.Get("/{id}", dep.DeploymentsHandler.Get)
				dr.Get("/{id}/status", dep.DeploymentsHandler.Status)
				dr.Get("/{id}/logs", dep.DeploymentsHandler.Logs)
				dr.Post("/{id}/cancel", dep.DeploymentsHandler.Cancel)
				dr.With(mw.RequireTier(services.TierForDestroy)).Post("/{id}/destroy", dep.DeploymentsHandler.Destroy)
			})
		})
	})

	return r
}
