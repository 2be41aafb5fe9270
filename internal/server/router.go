package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloo-solutions/corpora/internal/api"
	"github.com/cloo-solutions/corpora/internal/api/handlers"
	"github.com/cloo-solutions/corpora/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator    middleware.AuthValidator
	IngestionHandler *handlers.IngestionHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	AuthHandler      *handlers.AuthHandler
	ProjectHandler   *handlers.ProjectHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", cfg.ProjectHandler.Create)
			r.Get("/", cfg.ProjectHandler.List)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", cfg.ProjectHandler.Get)

				r.Post("/members", cfg.ProjectHandler.GrantMember)
				r.Delete("/members/{actorID}", cfg.ProjectHandler.RevokeMember)

				r.Post("/ingest/document", cfg.IngestionHandler.IngestDocument)
				r.Post("/ingest/conversation", cfg.IngestionHandler.IngestConversation)
				r.Post("/ingest/text", cfg.IngestionHandler.IngestText)

				r.Get("/knowledge", cfg.KnowledgeHandler.List)
				r.Get("/knowledge/{itemID}", cfg.KnowledgeHandler.Get)
				r.Get("/audit", cfg.KnowledgeHandler.ListAudit)
			})
		})

		r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)
		r.Get("/apikeys", cfg.AuthHandler.ListAPIKeys)
		r.Delete("/apikeys/{keyID}", cfg.AuthHandler.RevokeAPIKey)
	})

	r.Post("/actors", cfg.AuthHandler.CreateActor)

	return r
}
