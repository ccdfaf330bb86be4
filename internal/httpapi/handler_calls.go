package httpapi

import (
	"net/http"

	"salon-agent/internal/config"
	"salon-agent/internal/models"
	"salon-agent/internal/store"
)

func CallHistoryHandler(cfg *config.Config, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls, err := st.ListRecentCalls(r.Context(), cfg.Admin.RecentCallsLimit)
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		render(w, "call_history", struct {
			Title string
			Flash Flash
			Calls []*models.CallRecord
		}{
			Title: "Call history",
			Flash: flashFromRequest(r),
			Calls: calls,
		})
	}
}
