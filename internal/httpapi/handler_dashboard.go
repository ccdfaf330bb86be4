package httpapi

import (
	"net/http"

	"salon-agent/internal/models"
	"salon-agent/internal/store"
)

const dashboardPreview = 20

func DashboardHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := st.ListPendingRequests(r.Context())
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		if len(pending) > dashboardPreview {
			pending = pending[:dashboardPreview]
		}

		knowledge, err := st.ListKnowledge(r.Context())
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		if len(knowledge) > dashboardPreview {
			knowledge = knowledge[:dashboardPreview]
		}

		render(w, "dashboard", struct {
			Title           string
			Flash           Flash
			PendingRequests []*models.Request
			Knowledge       []*models.KnowledgeEntry
		}{
			Title:           "Dashboard",
			Flash:           flashFromRequest(r),
			PendingRequests: pending,
			Knowledge:       knowledge,
		})
	}
}
