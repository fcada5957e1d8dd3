package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/starford/quarry/internal/registry"
)

// NewRouter creates a chi router with all API routes mounted. Every route
// allows any origin, tolerates a trailing slash and gzips JSON and text.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *registry.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/packages/{scope}/{name}", func(r chi.Router) {
		r.Get("/", h.ListVersions)
		r.Get("/{version}/{target}", h.GetPackageVersion)
	})

	r.Get("/search", h.Search)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
