// Package resolve selects the index entry matching a package query and
// shapes the answer: metadata, a documentation page or a stored blob.
package resolve

import (
	"fmt"
	"strings"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// ParseError reports an unparseable selector.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{e.Err, apperr.ErrInvalidInput}
}

// VersionRequest is "latest" or a specific version.
type VersionRequest struct {
	latest  bool
	version version.Version
}

// Latest selects the greatest published version.
func Latest() VersionRequest { return VersionRequest{latest: true} }

// Exact selects v.
func Exact(v version.Version) VersionRequest { return VersionRequest{version: v} }

// ParseVersionRequest accepts "latest" in any case, or a version.
func ParseVersionRequest(s string) (VersionRequest, error) {
	if strings.EqualFold(s, "latest") {
		return Latest(), nil
	}
	v, err := version.Parse(s)
	if err != nil {
		return VersionRequest{}, &ParseError{Field: "version", Input: s, Err: err}
	}
	return Exact(v), nil
}

// IsLatest reports whether the request is "latest".
func (r VersionRequest) IsLatest() bool { return r.latest }

// Version returns the requested version; false for "latest".
func (r VersionRequest) Version() (version.Version, bool) { return r.version, !r.latest }

func (r VersionRequest) String() string {
	if r.latest {
		return "latest"
	}
	return r.version.String()
}

// TargetRequest is "any" or a specific kind.
type TargetRequest struct {
	kind target.Kind // empty for any
}

// AnyTarget selects the first kind in the canonical order.
func AnyTarget() TargetRequest { return TargetRequest{} }

// ExactTarget selects k.
func ExactTarget(k target.Kind) TargetRequest { return TargetRequest{kind: k} }

// ParseTargetRequest accepts "any" in any case, or a kind name. With a non
// nil enabled set, kinds outside it are rejected.
func ParseTargetRequest(s string, enabled *target.KindSet) (TargetRequest, error) {
	if strings.EqualFold(s, "any") {
		return AnyTarget(), nil
	}
	k, err := target.ParseKind(s)
	if err != nil {
		return TargetRequest{}, &ParseError{Field: "target", Input: s, Err: err}
	}
	if enabled != nil && !enabled.Has(k) {
		return TargetRequest{}, &ParseError{Field: "target", Input: s, Err: fmt.Errorf("target %s is not enabled", k)}
	}
	return ExactTarget(k), nil
}

// IsAny reports whether the request is "any".
func (r TargetRequest) IsAny() bool { return r.kind == "" }

// Kind returns the requested kind; false for "any".
func (r TargetRequest) Kind() (target.Kind, bool) { return r.kind, r.kind != "" }

func (r TargetRequest) String() string {
	if r.kind == "" {
		return "any"
	}
	return r.kind.String()
}
