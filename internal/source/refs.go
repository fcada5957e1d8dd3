package source

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/quarry/internal/manifest"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

// PackageRef is what dependency resolution needs from a resolved package.
type PackageRef interface {
	Dependencies() map[string]manifest.Dependency
	// UseNewStructure reports whether the package is laid out with the
	// current on-disk convention.
	UseNewStructure() bool
	TargetKind() target.Kind
	Source() PackageSource
}

// NativePackageRef points at a package in a native index.
type NativePackageRef struct {
	Name     names.PackageName              `json:"name"`
	Version  version.Version                `json:"version"`
	IndexURL string                         `json:"index_url"`
	Deps     map[string]manifest.Dependency `json:"dependencies,omitempty"`
	Target   target.Target                  `json:"target"`
}

func (r *NativePackageRef) Dependencies() map[string]manifest.Dependency { return r.Deps }
func (r *NativePackageRef) UseNewStructure() bool                        { return true }
func (r *NativePackageRef) TargetKind() target.Kind                      { return r.Target.Kind() }
func (r *NativePackageRef) Source() PackageSource                        { return NativeSource{URL: r.IndexURL} }

// WallyPackageRef points at a package in the Wally registry. Wally only
// publishes for roblox and uses the legacy layout.
type WallyPackageRef struct {
	Name     names.WallyPackageName         `json:"name"`
	Version  version.Version                `json:"version"`
	IndexURL string                         `json:"index_url"`
	Deps     map[string]manifest.Dependency `json:"dependencies,omitempty"`
}

func (r *WallyPackageRef) Dependencies() map[string]manifest.Dependency { return r.Deps }
func (r *WallyPackageRef) UseNewStructure() bool                        { return false }
func (r *WallyPackageRef) TargetKind() target.Kind                      { return target.Roblox }
func (r *WallyPackageRef) Source() PackageSource                        { return WallySource{URL: r.IndexURL} }

// Reference tags.
const (
	RefNative = "pesde"
	RefWally  = "wally"
)

// PackageRefs holds exactly one of the package reference variants. Build it
// with NativeRef or WallyRef.
type PackageRefs struct {
	native *NativePackageRef
	wally  *WallyPackageRef
}

// NativeRef wraps a native reference.
func NativeRef(r *NativePackageRef) PackageRefs { return PackageRefs{native: r} }

// WallyRef wraps a Wally reference.
func WallyRef(r *WallyPackageRef) PackageRefs { return PackageRefs{wally: r} }

// ErrEmptyRef is returned when encoding a PackageRefs that holds no variant.
var ErrEmptyRef = errors.New("source: empty package reference")

func (p PackageRefs) ref() (PackageRef, bool) {
	switch {
	case p.native != nil:
		return p.native, true
	case p.wally != nil:
		return p.wally, true
	}
	return nil, false
}

// IsZero reports whether no variant is held.
func (p PackageRefs) IsZero() bool { return p.native == nil && p.wally == nil }

// Tag returns the variant tag, or "" for the zero value.
func (p PackageRefs) Tag() string {
	switch {
	case p.native != nil:
		return RefNative
	case p.wally != nil:
		return RefWally
	}
	return ""
}

// Native returns the native variant, if held.
func (p PackageRefs) Native() (*NativePackageRef, bool) { return p.native, p.native != nil }

// Wally returns the Wally variant, if held.
func (p PackageRefs) Wally() (*WallyPackageRef, bool) { return p.wally, p.wally != nil }

// IsForeignCompat reports whether the reference comes from the Wally
// compatibility source.
func (p PackageRefs) IsForeignCompat() bool { return p.wally != nil }

// Dependencies, UseNewStructure, TargetKind and Source return zero values
// for the zero PackageRefs.
func (p PackageRefs) Dependencies() map[string]manifest.Dependency {
	if r, ok := p.ref(); ok {
		return r.Dependencies()
	}
	return nil
}

func (p PackageRefs) UseNewStructure() bool {
	if r, ok := p.ref(); ok {
		return r.UseNewStructure()
	}
	return false
}

func (p PackageRefs) TargetKind() target.Kind {
	if r, ok := p.ref(); ok {
		return r.TargetKind()
	}
	return ""
}

func (p PackageRefs) Source() PackageSource {
	if r, ok := p.ref(); ok {
		return r.Source()
	}
	return nil
}

// MarshalJSON writes the variant's fields plus a "ref_ty" tag.
func (p PackageRefs) MarshalJSON() ([]byte, error) {
	r, ok := p.ref()
	if !ok {
		return nil, ErrEmptyRef
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(p.Tag())
	fields["ref_ty"] = tag
	return json.Marshal(fields)
}

// UnmarshalJSON reads a "ref_ty" tagged object.
func (p *PackageRefs) UnmarshalJSON(b []byte) error {
	var head struct {
		RefTy string `json:"ref_ty"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	switch head.RefTy {
	case RefNative:
		var r NativePackageRef
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		if err := r.Target.Validate(); err != nil {
			return err
		}
		*p = NativeRef(&r)
	case RefWally:
		var r WallyPackageRef
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		*p = WallyRef(&r)
	case "":
		return errors.New("source: package ref has no ref_ty")
	default:
		return fmt.Errorf("source: unknown ref_ty %q", head.RefTy)
	}
	return nil
}
