package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quarry/internal/registry"
)

// Handler holds API route handlers.
type Handler struct {
	svc *registry.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *registry.Service) *Handler {
	return &Handler{svc: svc}
}

func packageName(r *http.Request) string {
	return chi.URLParam(r, "scope") + "/" + chi.URLParam(r, "name")
}

// ListVersions handles GET /v0/packages/{scope}/{name}.
//
//	@Summary		List every published version of a package
//	@Tags			packages
//	@Produce		json
//	@Param			scope	path		string	true	"Package scope"
//	@Param			name	path		string	true	"Package name"
//	@Success		200		{object}	VersionsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{scope}/{name} [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ListVersions(r.Context(), packageName(r))
	if err != nil {
		writeError(w, r, "list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPackageVersion handles GET /v0/packages/{scope}/{name}/{version}/{target}.
//
// The Accept header selects the representation: text/plain returns the
// readme, application/octet-stream the archive, anything else the JSON
// metadata. A doc query parameter returns that documentation page instead.
//
//	@Summary		Resolve one version and target of a package
//	@Tags			packages
//	@Produce		json,plain,octet-stream
//	@Param			scope	path		string	true	"Package scope"
//	@Param			name	path		string	true	"Package name"
//	@Param			version	path		string	true	"Version or latest"
//	@Param			target	path		string	true	"Target kind or any"
//	@Param			doc		query		string	false	"Documentation page name"
//	@Success		200		{object}	PackageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{scope}/{name}/{version}/{target} [get]
func (h *Handler) GetPackageVersion(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetPackageVersion(r.Context(), registry.Query{
		Name:    packageName(r),
		Version: chi.URLParam(r, "version"),
		Target:  chi.URLParam(r, "target"),
		Doc:     r.URL.Query().Get("doc"),
		Accept:  r.Header.Get("Accept"),
	})
	if err != nil {
		writeError(w, r, "get package version", err)
		return
	}
	if res.Body == nil {
		writeJSON(w, http.StatusOK, res.Metadata)
		return
	}
	defer res.Body.Close()

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Body); err != nil {
		slog.Warn("stream blob failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
}

// Search handles GET /v0/search.
//
//	@Summary		Full-text search across packages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
