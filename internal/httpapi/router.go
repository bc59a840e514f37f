package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Rmkrs13/document-analyzer-api/internal/services"
)

// NewRouter mounts every endpoint at /<name> and, for the hosted-function
// clients, at /.netlify/functions/<name>.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	for _, ep := range services.Endpoints {
		handler := h.Endpoint(ep)
		r.HandleFunc("/"+ep.Name, handler)
		r.HandleFunc("/.netlify/functions/"+ep.Name, handler)
	}
	return r
}
