package httpapi

import (
	"errors"
	"net/http"

	"salon-agent/internal/models"
	"salon-agent/internal/store"
)

func KnowledgeHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := st.ListKnowledge(r.Context())
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		render(w, "knowledge_base", struct {
			Title   string
			Flash   Flash
			Entries []*models.KnowledgeEntry
		}{
			Title:   "Knowledge base",
			Flash:   flashFromRequest(r),
			Entries: entries,
		})
	}
}

func AddKnowledgeFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, "add_knowledge", struct {
			Title string
			Flash Flash
		}{
			Title: "Add knowledge",
			Flash: flashFromRequest(r),
		})
	}
}

func AddKnowledgeHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyPhrase := r.FormValue("key_phrase")
		question := r.FormValue("question")
		answer := r.FormValue("answer")

		_, err := st.UpsertKnowledge(r.Context(), keyPhrase, question, answer, "supervisor")
		switch {
		case err == nil:
			redirectWithFlash(w, r, "/knowledge", "Knowledge base entry added", "success")
		case errors.Is(err, store.ErrMissingFields):
			redirectWithFlash(w, r, "/knowledge/add", "All fields are required", "error")
		default:
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
	}
}
