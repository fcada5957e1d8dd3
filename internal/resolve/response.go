package resolve

import (
	"slices"
	"time"

	"github.com/starford/quarry/internal/manifest"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// TargetInfo summarizes what a published target exports.
type TargetInfo struct {
	Kind    target.Kind `json:"kind"`
	Lib     bool        `json:"lib"`
	Bin     bool        `json:"bin"`
	Scripts []string    `json:"scripts,omitempty"`
}

// NewTargetInfo summarizes t.
func NewTargetInfo(t target.Target) TargetInfo {
	return TargetInfo{
		Kind:    t.Kind(),
		Lib:     t.LibPath() != "",
		Bin:     t.BinPath() != "",
		Scripts: t.ScriptNames(),
	}
}

func targetInfos(ts []target.Target) []TargetInfo {
	out := make([]TargetInfo, len(ts))
	for i, t := range ts {
		out[i] = NewTargetInfo(t)
	}
	slices.SortFunc(out, func(a, b TargetInfo) int { return a.Kind.Compare(b.Kind) })
	return out
}

// PackageResponse is the metadata answer for one package version.
type PackageResponse struct {
	Name         string                         `json:"name"`
	Version      string                         `json:"version"`
	Targets      []TargetInfo                   `json:"targets"`
	Description  string                         `json:"description,omitempty"`
	PublishedAt  time.Time                      `json:"published_at"`
	License      string                         `json:"license,omitempty"`
	Authors      []string                       `json:"authors,omitempty"`
	Repository   string                         `json:"repository,omitempty"`
	Docs         []source.DocEntry              `json:"docs"`
	Dependencies map[string]manifest.Dependency `json:"dependencies"`
}

// NewPackageResponse builds the metadata answer for a resolution.
func NewPackageResponse(name string, res *Resolution) PackageResponse {
	e := res.Entry
	docs := e.Docs
	if docs == nil {
		docs = []source.DocEntry{}
	}
	deps := e.Dependencies
	if deps == nil {
		deps = map[string]manifest.Dependency{}
	}
	return PackageResponse{
		Name:         name,
		Version:      res.ID.Version.String(),
		Targets:      targetInfos(res.Targets),
		Description:  e.Description,
		PublishedAt:  e.PublishedAt,
		License:      e.License,
		Authors:      e.Authors,
		Repository:   e.Repository,
		Docs:         docs,
		Dependencies: deps,
	}
}

// VersionSummary describes one published version across its targets.
type VersionSummary struct {
	Version     string       `json:"version"`
	Targets     []TargetInfo `json:"targets"`
	Description string       `json:"description,omitempty"`
	PublishedAt time.Time    `json:"published_at"`
}

// VersionsResponse lists every published version of a package, newest first.
type VersionsResponse struct {
	Name     string           `json:"name"`
	Latest   string           `json:"latest"`
	Versions []VersionSummary `json:"versions"`
}

// NewVersionsResponse groups the entries of file by version. The
// description and publish time of a version come from its first target in
// the canonical kind order.
func NewVersionsResponse(name string, file source.IndexFile) VersionsResponse {
	ids := file.IDs()
	resp := VersionsResponse{Name: name, Versions: []VersionSummary{}}
	var (
		cur     version.Version
		targets []target.Target
	)
	flush := func() {
		if len(targets) == 0 {
			return
		}
		first := file[version.NewID(cur, targets[0].Kind())]
		resp.Versions = append(resp.Versions, VersionSummary{
			Version:     cur.String(),
			Targets:     targetInfos(targets),
			Description: first.Description,
			PublishedAt: first.PublishedAt,
		})
		targets = nil
	}
	for _, id := range ids {
		if id.Version != cur {
			flush()
			cur = id.Version
		}
		targets = append(targets, file[id].Target)
	}
	flush()
	slices.Reverse(resp.Versions)
	if len(resp.Versions) > 0 {
		resp.Latest = resp.Versions[0].Version
	}
	return resp
}
