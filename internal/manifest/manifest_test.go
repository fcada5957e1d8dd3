package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/version"
)

const sampleManifest = `
name = "acme/widgets"
version = "1.2.0"
description = "Widgets for everyone"
license = "MIT"
authors = ["Ada <ada@example.com>"]
repository = "https://example.com/acme/widgets"
includes = ["src", "README.md", "src"]

[target]
environment = "lune"
lib = "src/init.luau"
bin = "src/main.luau"

[scripts]
build = "scripts/build.luau"

[indices]
default = "https://example.com/index"

[wally_indices]
default = "https://example.com/wally-index"

[overrides]
"b>c" = { name = "acme/ccc", version = "^2.0.0" }
"a,b" = { name = "acme/abab", version = "^1.0.0" }

[patches."acme/gears"]
"1.0.0 luau" = "patches/gears.patch"

[dependencies]
gears = { name = "acme/gears", version = "^1.0.0", target = "luau" }

[peer_dependencies]
roact = { wally = "roblox/roact", version = "^17.0.0" }

[dev_dependencies]
testez = { name = "acme/testez", version = "^0.4.0" }
`

func TestOverrideKeyRoundTrip(t *testing.T) {
	for _, s := range []string{"a", "a>b", "a,b", "a>b,c>d>e", ">", ",", "a>>b", "a,,b"} {
		k, err := ParseOverrideKey(s)
		if err != nil {
			t.Fatalf("ParseOverrideKey(%q): %v", s, err)
		}
		if got := k.String(); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}

	k, _ := ParseOverrideKey("a>b,c")
	if len(k) != 2 || len(k[0]) != 2 || k[0][1] != "b" || k[1][0] != "c" {
		t.Errorf("ParseOverrideKey(a>b,c) = %v", k)
	}
}

func TestOverrideKeyEmpty(t *testing.T) {
	_, err := ParseOverrideKey("")
	if !errors.Is(err, ErrEmptyOverrideKey) {
		t.Fatalf("err = %v, want ErrEmptyOverrideKey", err)
	}
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Error("empty key should be invalid input")
	}
}

func TestOverrideKeyCompare(t *testing.T) {
	a, _ := ParseOverrideKey("a>b")
	b, _ := ParseOverrideKey("a>c")
	c, _ := ParseOverrideKey("a>b,c")
	if a.Compare(b) >= 0 {
		t.Error("a>b should sort before a>c")
	}
	if a.Compare(c) >= 0 {
		t.Error("a prefix sorts first")
	}
	d, _ := ParseOverrideKey("a>b")
	if !a.Equal(d) {
		t.Error("equal keys should compare equal")
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Name.String() != "acme/widgets" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Version.String() != "1.2.0" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Target.Kind() != target.Lune || m.Target.BinPath() != "src/main.luau" {
		t.Errorf("Target = %+v", m.Target)
	}
	if len(m.Includes) != 2 || m.Includes[0] != "README.md" {
		t.Errorf("Includes = %v, want sorted unique", m.Includes)
	}

	if len(m.Overrides) != 2 || m.Overrides[0].Key.String() != "a,b" || m.Overrides[1].Key.String() != "b>c" {
		t.Errorf("Overrides not sorted by key: %v", m.Overrides)
	}

	gears, _ := names.ParsePackageNames("acme/gears")
	id, _ := version.ParseID("1.0.0 luau")
	if got := m.Patches[gears][id]; got != "patches/gears.patch" {
		t.Errorf("patch = %q", got)
	}

	if m.Dependencies["gears"].Target != target.Luau {
		t.Errorf("gears target = %q", m.Dependencies["gears"].Target)
	}
	if m.PeerDependencies["roact"].Kind() != WallySpecifier {
		t.Error("roact should be a wally specifier")
	}

	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"bad name":       "name = \"Acme/x\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"luau\"\n",
		"bad version":    "name = \"acme/xyz\"\nversion = \"1.0\"\n[target]\nenvironment = \"luau\"\n",
		"unknown kind":   "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"wasm\"\n",
		"roblox bin":     "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"roblox\"\nbin = \"x\"\n",
		"unknown field":  "name = \"acme/xyz\"\nversion = \"1.0.0\"\nflavour = \"x\"\n[target]\nenvironment = \"luau\"\n",
		"both names":     "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"luau\"\n[dependencies]\nx = { name = \"acme/abc\", wally = \"a/b\", version = \"1\" }\n",
		"no name":        "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"luau\"\n[dependencies]\nx = { version = \"1\" }\n",
		"short override": "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"luau\"\n[overrides]\n\"b>c\" = { name = \"acme/c\", version = \"1\" }\n",
		"empty override": "name = \"acme/xyz\"\nversion = \"1.0.0\"\n[target]\nenvironment = \"luau\"\n[overrides]\n\"\" = { name = \"acme/abc\", version = \"1\" }\n",
	}
	for name, src := range cases {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("%s: Parse should fail", name)
		}
	}

	_, err := Parse([]byte(cases["short override"]))
	var ne *names.InvalidNameError
	if !errors.As(err, &ne) || !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("short override name err = %v, want InvalidNameError", err)
	}
}

func TestEncodeOmitsReadOnlyFields(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(data)
	for _, absent := range []string{"[scripts]", "overrides", "patches"} {
		if strings.Contains(text, absent) {
			t.Errorf("encoded manifest contains %q:\n%s", absent, text)
		}
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode()): %v\n%s", err, text)
	}
	if back.Name != m.Name || back.Version != m.Version || !back.Target.Equal(m.Target) {
		t.Errorf("identity changed across encode: %+v", back)
	}
	if len(back.Dependencies) != 1 || len(back.PeerDependencies) != 1 || len(back.DevDependencies) != 1 {
		t.Errorf("dependency sets changed across encode")
	}
	if back.Scripts != nil || back.Overrides != nil || back.Patches != nil {
		t.Error("read-only fields should not survive encode")
	}
}

func spec(t *testing.T, name string) DependencySpecifier {
	t.Helper()
	n, err := names.ParsePackageNames(name)
	if err != nil {
		t.Fatal(err)
	}
	return DependencySpecifier{Name: n, Version: "^1.0.0"}
}

func TestAllDependencies(t *testing.T) {
	m := &Manifest{
		Dependencies:     map[string]DependencySpecifier{"a": spec(t, "acme/aaa"), "b": spec(t, "acme/bbb")},
		PeerDependencies: map[string]DependencySpecifier{"c": spec(t, "wally#x/c")},
		DevDependencies:  map[string]DependencySpecifier{"d": spec(t, "acme/ddd")},
	}
	all, err := m.AllDependencies()
	if err != nil {
		t.Fatalf("AllDependencies: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len = %d, want 4", len(all))
	}
	if all["c"].Type != Peer || all["d"].Type != Dev || all["a"].Type != Standard {
		t.Errorf("types = %v", all)
	}
}

func TestAllDependenciesConflict(t *testing.T) {
	pairs := []struct {
		name string
		m    *Manifest
	}{
		{"standard/peer", &Manifest{
			Dependencies:     map[string]DependencySpecifier{"x": spec(t, "acme/aaa")},
			PeerDependencies: map[string]DependencySpecifier{"x": spec(t, "acme/bbb")},
		}},
		{"standard/dev", &Manifest{
			Dependencies:    map[string]DependencySpecifier{"x": spec(t, "acme/aaa")},
			DevDependencies: map[string]DependencySpecifier{"x": spec(t, "acme/bbb")},
		}},
		{"peer/dev", &Manifest{
			PeerDependencies: map[string]DependencySpecifier{"y": spec(t, "acme/aaa"), "x": spec(t, "acme/ccc")},
			DevDependencies:  map[string]DependencySpecifier{"x": spec(t, "acme/bbb")},
		}},
	}
	for _, p := range pairs {
		_, err := p.m.AllDependencies()
		var ac *AliasConflictError
		if !errors.As(err, &ac) {
			t.Errorf("%s: err = %v, want AliasConflictError", p.name, err)
			continue
		}
		if ac.Alias != "x" {
			t.Errorf("%s: alias = %q, want x", p.name, ac.Alias)
		}
		if !errors.Is(err, ErrAliasConflict) {
			t.Errorf("%s: should unwrap to ErrAliasConflict", p.name)
		}
	}
}

func TestValidateIndices(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	m.WallyIndices = nil
	if err := m.Validate(); err == nil {
		t.Error("wally dependency without wally index should fail")
	}

	m, _ = Parse([]byte(sampleManifest))
	m.Repository = "not a url"
	if err := m.Validate(); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad repository err = %v", err)
	}
}
