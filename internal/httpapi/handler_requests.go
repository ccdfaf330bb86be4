package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"salon-agent/internal/models"
	"salon-agent/internal/store"
)

type requestsPage struct {
	Title    string
	Flash    Flash
	Requests []*models.Request
}

func PendingRequestsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := st.ListPendingRequests(r.Context())
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		render(w, "pending", requestsPage{
			Title:    "Pending requests",
			Flash:    flashFromRequest(r),
			Requests: requests,
		})
	}
}

func RequestsByStatusHandler(st store.Store, status string) http.HandlerFunc {
	titles := map[string]string{
		"resolved":   "Resolved requests",
		"unresolved": "Unresolved requests",
	}

	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := st.ListRequestsByStatus(r.Context(), models.RequestStatus(status), 0)
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		render(w, "requests", requestsPage{
			Title:    titles[status],
			Flash:    flashFromRequest(r),
			Requests: requests,
		})
	}
}

func ResolveRequestHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		answer := r.FormValue("answer")

		if answer == "" {
			redirectWithFlash(w, r, "/requests/pending", "Please provide an answer", "error")
			return
		}

		_, err := st.ResolveRequest(r.Context(), id, answer)
		switch {
		case err == nil:
			redirectWithFlash(w, r, "/requests/pending", "Request resolved successfully", "success")
		case errors.Is(err, store.ErrNotFound):
			redirectWithFlash(w, r, "/requests/pending", "Request not found", "error")
		case errors.Is(err, store.ErrEmptyAnswer):
			redirectWithFlash(w, r, "/requests/pending", "Please provide an answer", "error")
		case errors.Is(err, store.ErrAlreadyFinal):
			redirectWithFlash(w, r, "/requests/pending", "Request is no longer pending", "error")
		default:
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
	}
}

func MarkUnresolvedHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reason := r.FormValue("reason")
		if reason == "" {
			reason = "No reason provided"
		}

		_, err := st.MarkRequestUnresolved(r.Context(), id, reason)
		switch {
		case err == nil:
			redirectWithFlash(w, r, "/requests/pending", "Request marked as unresolved", "success")
		case errors.Is(err, store.ErrNotFound):
			redirectWithFlash(w, r, "/requests/pending", "Request not found", "error")
		case errors.Is(err, store.ErrAlreadyFinal):
			redirectWithFlash(w, r, "/requests/pending", "Request is no longer pending", "error")
		default:
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
	}
}
