package httpapi

import (
	"context"
	"net/http"

	"salon-agent/internal/store"
)

// pinger is implemented by stores that can verify their backend.
type pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := st.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				http.Error(w, "storage not ok", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
