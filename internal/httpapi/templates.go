package httpapi

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Flash is a one-shot message carried across a redirect as query
// parameters; the console has no session state.
type Flash struct {
	Message string
	Kind    string // "success" or "error"
}

func flashFromRequest(r *http.Request) Flash {
	return Flash{
		Message: r.URL.Query().Get("flash"),
		Kind:    r.URL.Query().Get("kind"),
	}
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, message, kind string) {
	q := url.Values{}
	q.Set("flash", message)
	q.Set("kind", kind)
	http.Redirect(w, r, path+"?"+q.Encode(), http.StatusSeeOther)
}

func render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
