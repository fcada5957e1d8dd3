package api

import (
	"github.com/starford/quarry/internal/resolve"
	"github.com/starford/quarry/internal/search"
)

// PackageResponse is the metadata of one resolved version (aliased from
// the domain layer).
type PackageResponse = resolve.PackageResponse

// VersionsResponse lists the versions of a package (aliased from the
// domain layer).
type VersionsResponse = resolve.VersionsResponse

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results" validate:"required"`
}
