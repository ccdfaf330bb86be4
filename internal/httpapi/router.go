package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"salon-agent/internal/config"
	"salon-agent/internal/store"
)

func NewRouter(cfg *config.Config, st store.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)

	r.Get("/health", HealthHandler(st))
	r.Get("/version", VersionHandler())

	// Supervisor console
	r.Group(func(admin chi.Router) {
		admin.Use(SupervisorBasicAuth(cfg))

		admin.Get("/", DashboardHandler(st))
		admin.Get("/stats", StatsHandler(st))

		admin.Route("/requests", func(req chi.Router) {
			req.Get("/pending", PendingRequestsHandler(st))
			req.Get("/resolved", RequestsByStatusHandler(st, "resolved"))
			req.Get("/unresolved", RequestsByStatusHandler(st, "unresolved"))
			req.Post("/{id}/resolve", ResolveRequestHandler(st))
			req.Post("/{id}/unresolved", MarkUnresolvedHandler(st))
		})

		admin.Get("/calls/history", CallHistoryHandler(cfg, st))

		admin.Route("/knowledge", func(kb chi.Router) {
			kb.Get("/", KnowledgeHandler(st))
			kb.Get("/add", AddKnowledgeFormHandler())
			kb.Post("/add", AddKnowledgeHandler(st))
		})
	})

	return r
}
