package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-ai/inkwell/internal/api"
	"github.com/inkwell-ai/inkwell/internal/api/handlers"
	"github.com/inkwell-ai/inkwell/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	SourceHandler   *handlers.SourceHandler
	ChunkHandler    *handlers.ChunkHandler
	ResearchHandler *handlers.ResearchHandler
	ContextHandler  *handlers.ContextHandler
	FolderHandler   *handlers.FolderHandler
	InsightsHandler *handlers.InsightsHandler
	AuthHandler     *handlers.AuthHandler
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

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/sources", func(r chi.Router) {
			r.Post("/", cfg.SourceHandler.Submit)
			r.Get("/", cfg.SourceHandler.List)
			r.Get("/{id}", cfg.SourceHandler.Get)
			r.Post("/{id}/reingest", cfg.SourceHandler.Reingest)
			r.Post("/{id}/folders", cfg.SourceHandler.AttachFolders)
			r.Delete("/{id}", cfg.SourceHandler.Delete)
		})

		r.Route("/chunks", func(r chi.Router) {
			r.Get("/", cfg.ChunkHandler.List)
			r.Get("/{id}", cfg.ChunkHandler.Get)
			r.Get("/{id}/events", cfg.ChunkHandler.Events)
			r.Post("/{id}/activate", cfg.ChunkHandler.Activate)
			r.Post("/{id}/deactivate", cfg.ChunkHandler.Deactivate)
			r.Post("/{id}/reclassify", cfg.ChunkHandler.Reclassify)
			r.Post("/{id}/policy", cfg.ChunkHandler.SetPolicy)
			r.Delete("/{id}", cfg.ChunkHandler.Delete)
		})

		r.Route("/research", func(r chi.Router) {
			r.Post("/search", cfg.ResearchHandler.Search)
			r.Post("/promote", cfg.ResearchHandler.Promote)
		})

		r.Post("/context", cfg.ContextHandler.GenerationContext)

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", cfg.FolderHandler.Create)
			r.Get("/{id}", cfg.FolderHandler.Get)
		})

		r.Get("/facts", cfg.InsightsHandler.ListFacts)
		r.Get("/voice-traits", cfg.InsightsHandler.ListVoiceTraits)
	})

	r.Post("/orgs", cfg.AuthHandler.CreateOrg)
	r.Post("/orgs/members", cfg.AuthHandler.AddMember)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
