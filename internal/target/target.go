package target

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrNoExportedFiles is returned by ValidatePublish when a target exports
// neither a library nor a binary.
var ErrNoExportedFiles = errors.New("no exported files specified")

// ErrNoBuildFiles is wrapped by NoBuildFilesError.
var ErrNoBuildFiles = errors.New("no build files specified")

// NoBuildFilesError is returned by ValidatePublish when a kind that needs
// build files declares none.
type NoBuildFilesError struct {
	Kind Kind
}

func (e *NoBuildFilesError) Error() string {
	return fmt.Sprintf("%s target must have at least one build file", e.Kind)
}

func (e *NoBuildFilesError) Unwrap() error { return ErrNoBuildFiles }

// shape lists the fields a kind carries.
type shape struct {
	bin        bool
	buildFiles bool // carried and required for publishing
	scripts    bool
}

var shapes = map[Kind]shape{
	Roblox: {buildFiles: true},
	Lune:   {bin: true, scripts: true},
	Luau:   {bin: true, scripts: true},
}

// Target is the kind-specific description of a package's exports. The
// Environment field is the variant tag; the remaining fields are only
// meaningful for kinds whose shape carries them (see Validate).
type Target struct {
	Environment Kind              `toml:"environment" json:"environment"`
	Lib         string            `toml:"lib,omitempty" json:"lib,omitempty"`
	Bin         string            `toml:"bin,omitempty" json:"bin,omitempty"`
	BuildFiles  []string          `toml:"build_files,omitempty" json:"build_files,omitempty"`
	Scripts     map[string]string `toml:"scripts,omitempty" json:"scripts,omitempty"`
}

// Kind returns the variant tag.
func (t Target) Kind() Kind { return t.Environment }

// LibPath returns the library entry point, or "" when none is set.
func (t Target) LibPath() string { return t.Lib }

// BinPath returns the binary entry point. Kinds without binaries always
// return "".
func (t Target) BinPath() string {
	if !shapes[t.Environment].bin {
		return ""
	}
	return t.Bin
}

// ScriptNames returns the sorted names of the target's scripts.
func (t Target) ScriptNames() []string {
	if !shapes[t.Environment].scripts || len(t.Scripts) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.Scripts))
	for n := range t.Scripts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the tag and rejects fields the kind does not carry.
func (t Target) Validate() error {
	if !t.Environment.Valid() {
		return &UnknownKindError{Value: string(t.Environment)}
	}
	s := shapes[t.Environment]
	if !s.bin && t.Bin != "" {
		return fmt.Errorf("target: %s targets cannot declare bin", t.Environment)
	}
	if !s.buildFiles && len(t.BuildFiles) > 0 {
		return fmt.Errorf("target: %s targets cannot declare build_files", t.Environment)
	}
	if !s.scripts && len(t.Scripts) > 0 {
		return fmt.Errorf("target: %s targets cannot declare scripts", t.Environment)
	}
	return nil
}

// ValidatePublish checks that the target exports something usable.
func (t Target) ValidatePublish() error {
	if t.LibPath() == "" && t.BinPath() == "" {
		return ErrNoExportedFiles
	}
	if shapes[t.Environment].buildFiles && len(t.BuildFiles) == 0 {
		return &NoBuildFilesError{Kind: t.Environment}
	}
	return nil
}

// Equal reports structural equality.
func (t Target) Equal(o Target) bool {
	if t.Environment != o.Environment || t.Lib != o.Lib || t.Bin != o.Bin {
		return false
	}
	if !slices.Equal(t.BuildFiles, o.BuildFiles) || len(t.Scripts) != len(o.Scripts) {
		return false
	}
	for k, v := range t.Scripts {
		if ov, ok := o.Scripts[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (t Target) String() string { return string(t.Environment) }
