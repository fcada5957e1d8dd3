package resolve_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/resolve"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/testutil"
	"github.com/starford/quarry/internal/version"
)

func mustVersion(t *testing.T, s string) resolve.VersionRequest {
	t.Helper()
	r, err := resolve.ParseVersionRequest(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustTarget(t *testing.T, s string) resolve.TargetRequest {
	t.Helper()
	r, err := resolve.ParseTargetRequest(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestParseVersionRequest(t *testing.T) {
	for _, s := range []string{"latest", "LATEST", "Latest"} {
		if r := mustVersion(t, s); !r.IsLatest() {
			t.Errorf("%q should be latest", s)
		}
	}
	r := mustVersion(t, "1.2.3")
	if v, ok := r.Version(); !ok || v.String() != "1.2.3" {
		t.Errorf("Version() = %v, %v", v, ok)
	}

	_, err := resolve.ParseVersionRequest("newest")
	var pe *resolve.ParseError
	if !errors.As(err, &pe) || pe.Field != "version" || pe.Input != "newest" {
		t.Fatalf("err = %v, want ParseError naming the input", err)
	}
	if !errors.Is(err, apperr.ErrInvalidInput) || !errors.Is(err, version.ErrInvalidVersion) {
		t.Errorf("err should unwrap to invalid input and invalid version: %v", err)
	}
}

func TestParseTargetRequest(t *testing.T) {
	for _, s := range []string{"any", "ANY", "Any"} {
		if r := mustTarget(t, s); !r.IsAny() {
			t.Errorf("%q should be any", s)
		}
	}
	if k, ok := mustTarget(t, "lune").Kind(); !ok || k != target.Lune {
		t.Errorf("Kind() = %v, %v", k, ok)
	}

	_, err := resolve.ParseTargetRequest("Lune", nil)
	if !errors.Is(err, target.ErrUnknownKind) || !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("kind names are exact: err = %v", err)
	}

	set, _ := target.NewKindSet("luau")
	if _, err := resolve.ParseTargetRequest("lune", &set); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("disabled kind err = %v", err)
	}
	if _, err := resolve.ParseTargetRequest("luau", &set); err != nil {
		t.Errorf("enabled kind: %v", err)
	}
}

func TestResolveLatestAny(t *testing.T) {
	file := source.IndexFile{
		testutil.ID(t, "1.0.0 luau"): testutil.Entry(target.Luau),
		testutil.ID(t, "1.2.0 luau"): testutil.Entry(target.Luau),
	}
	res, err := resolve.Resolve(file, resolve.Latest(), resolve.AnyTarget())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.ID.Version.String() != "1.2.0" {
		t.Errorf("version = %s, want 1.2.0", res.ID.Version)
	}
}

func TestResolveLatestUsesSemverPrecedence(t *testing.T) {
	file := source.IndexFile{
		testutil.ID(t, "1.9.0 luau"):         testutil.Entry(target.Luau),
		testutil.ID(t, "1.10.0 luau"):        testutil.Entry(target.Luau),
		testutil.ID(t, "1.10.0-beta.1 lune"): testutil.Entry(target.Lune),
	}
	res, err := resolve.Resolve(file, resolve.Latest(), resolve.AnyTarget())
	if err != nil {
		t.Fatal(err)
	}
	if res.ID.Version.String() != "1.10.0" {
		t.Errorf("version = %s, want 1.10.0", res.ID.Version)
	}
}

func TestResolveSpecificTargetMissing(t *testing.T) {
	file := source.IndexFile{
		testutil.ID(t, "1.0.0 luau"): testutil.Entry(target.Luau),
		testutil.ID(t, "2.0.0 lune"): testutil.Entry(target.Lune),
	}
	_, err := resolve.Resolve(file, mustVersion(t, "1.0.0"), mustTarget(t, "lune"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveSpecificTargetIsExact(t *testing.T) {
	// A lune project may consume luau packages, but lookup is exact.
	file := source.IndexFile{testutil.ID(t, "1.0.0 luau"): testutil.Entry(target.Luau)}
	if _, err := resolve.Resolve(file, mustVersion(t, "1.0.0"), mustTarget(t, "lune")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveAnyPicksFirstKind(t *testing.T) {
	// Any map insertion order must give the same answer; build the file
	// several ways to be sure.
	orders := [][]target.Kind{
		{target.Luau, target.Roblox, target.Lune},
		{target.Lune, target.Luau, target.Roblox},
		{target.Roblox, target.Luau},
		{target.Luau, target.Lune},
	}
	wants := []target.Kind{target.Roblox, target.Roblox, target.Roblox, target.Lune}
	for i, kinds := range orders {
		file := source.IndexFile{}
		for _, k := range kinds {
			file[version.NewID(version.MustParse("2.0.0"), k)] = testutil.Entry(k)
		}
		for n := 0; n < 10; n++ {
			res, err := resolve.Resolve(file, mustVersion(t, "2.0.0"), resolve.AnyTarget())
			if err != nil {
				t.Fatal(err)
			}
			if res.ID.Target != wants[i] {
				t.Fatalf("kinds %v: picked %s, want %s", kinds, res.ID.Target, wants[i])
			}
		}
	}
}

func TestResolveCollectsTargets(t *testing.T) {
	file := source.IndexFile{
		testutil.ID(t, "1.0.0 luau"):   testutil.Entry(target.Luau),
		testutil.ID(t, "1.0.0 roblox"): testutil.Entry(target.Roblox),
		testutil.ID(t, "1.1.0 lune"):   testutil.Entry(target.Lune),
	}
	res, err := resolve.Resolve(file, mustVersion(t, "1.0.0"), mustTarget(t, "luau"))
	if err != nil {
		t.Fatal(err)
	}
	if res.ID.Target != target.Luau {
		t.Errorf("picked %s", res.ID.Target)
	}
	if len(res.Targets) != 2 || res.Targets[0].Kind() != target.Roblox || res.Targets[1].Kind() != target.Luau {
		t.Errorf("Targets = %v", res.Targets)
	}
}

func TestResolveNotFound(t *testing.T) {
	if _, err := resolve.Resolve(source.IndexFile{}, resolve.Latest(), resolve.AnyTarget()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("empty file err = %v", err)
	}
	file := source.IndexFile{testutil.ID(t, "1.0.0 luau"): testutil.Entry(target.Luau)}
	if _, err := resolve.Resolve(file, mustVersion(t, "3.0.0"), resolve.AnyTarget()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing version err = %v", err)
	}
}

func TestFindDocOrder(t *testing.T) {
	docs := []source.DocEntry{
		source.Category("guides",
			source.Page("intro", "H1"),
			source.Category("advanced", source.Page("intro", "H2")),
		),
	}
	hash, ok := resolve.FindDoc(docs, "intro")
	if !ok || hash != "H2" {
		t.Errorf("FindDoc = %q, %v, want H2", hash, ok)
	}

	// Top level entries are also popped last first.
	flat := []source.DocEntry{source.Page("a", "first"), source.Page("a", "second")}
	if hash, _ := resolve.FindDoc(flat, "a"); hash != "second" {
		t.Errorf("flat FindDoc = %q, want second", hash)
	}

	// A category name is never a match.
	if _, ok := resolve.FindDoc(docs, "guides"); ok {
		t.Error("categories are not pages")
	}
	if _, ok := resolve.FindDoc(docs, "missing"); ok {
		t.Error("missing page should not be found")
	}
	if _, ok := resolve.FindDoc(nil, "intro"); ok {
		t.Error("empty tree should not match")
	}
}

func TestNegotiate(t *testing.T) {
	cases := map[string]resolve.Representation{
		"":                             resolve.Metadata,
		"application/json":             resolve.Metadata,
		"text/plain":                   resolve.Readme,
		"TEXT/PLAIN":                   resolve.Readme,
		"application/octet-stream":     resolve.Archive,
		"Application/Octet-Stream":     resolve.Archive,
		"text/plain, application/json": resolve.Metadata,
		"text/plain; charset=utf-8":    resolve.Metadata,
		"*/*":                          resolve.Metadata,
	}
	for accept, want := range cases {
		if got := resolve.Negotiate(accept); got != want {
			t.Errorf("Negotiate(%q) = %s, want %s", accept, got, want)
		}
	}
}

func TestPackageResponse(t *testing.T) {
	lune := testutil.Entry(target.Lune)
	lune.Target.Bin = "main.luau"
	lune.Target.Scripts = map[string]string{"build": "build.luau"}
	lune.Description = "Widgets"
	file := source.IndexFile{
		testutil.ID(t, "1.0.0 lune"): lune,
		testutil.ID(t, "1.0.0 luau"): testutil.Entry(target.Luau),
	}
	res, err := resolve.Resolve(file, resolve.Latest(), mustTarget(t, "lune"))
	if err != nil {
		t.Fatal(err)
	}
	resp := resolve.NewPackageResponse("acme/widgets", res)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	if got["name"] != "acme/widgets" || got["version"] != "1.0.0" || got["description"] != "Widgets" {
		t.Errorf("identity = %s", data)
	}
	for _, absent := range []string{"license", "authors", "repository"} {
		if _, ok := got[absent]; ok {
			t.Errorf("%s should be omitted when empty: %s", absent, data)
		}
	}
	for _, present := range []string{"docs", "dependencies", "published_at"} {
		if _, ok := got[present]; !ok {
			t.Errorf("%s missing: %s", present, data)
		}
	}
	if !strings.Contains(string(data), `"targets":[{"kind":"lune","lib":true,"bin":true,"scripts":["build"]},{"kind":"luau","lib":true,"bin":false}]`) {
		t.Errorf("targets not ordered by kind: %s", data)
	}
}

func TestVersionsResponse(t *testing.T) {
	file := source.IndexFile{
		testutil.ID(t, "1.0.0 luau"):   testutil.Entry(target.Luau),
		testutil.ID(t, "1.0.0 roblox"): testutil.Entry(target.Roblox),
		testutil.ID(t, "2.0.0 lune"):   testutil.Entry(target.Lune),
	}
	resp := resolve.NewVersionsResponse("acme/widgets", file)
	if resp.Latest != "2.0.0" {
		t.Errorf("Latest = %q", resp.Latest)
	}
	if len(resp.Versions) != 2 || resp.Versions[0].Version != "2.0.0" {
		t.Fatalf("Versions = %+v", resp.Versions)
	}
	old := resp.Versions[1]
	if len(old.Targets) != 2 || old.Targets[0].Kind != target.Roblox {
		t.Errorf("1.0.0 targets = %+v", old.Targets)
	}

	empty := resolve.NewVersionsResponse("acme/none", source.IndexFile{})
	if empty.Latest != "" || len(empty.Versions) != 0 {
		t.Errorf("empty = %+v", empty)
	}
}
