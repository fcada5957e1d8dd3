package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/manifest"
	"github.com/starford/quarry/internal/names"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/target"
	"github.com/starford/quarry/internal/testutil"
	"github.com/starford/quarry/internal/version"
)

func sampleFile(t *testing.T) source.IndexFile {
	t.Helper()
	gears, err := names.ParsePackageNames("acme/gears")
	if err != nil {
		t.Fatal(err)
	}
	lune := testutil.Entry(target.Lune)
	lune.Description = "Widgets"
	lune.License = "MIT"
	lune.Authors = []string{"Ada"}
	lune.Repository = "https://example.com/acme/widgets"
	lune.Docs = []source.DocEntry{
		source.Category("guides",
			source.Page("intro", "h1"),
			source.Category("advanced", source.Page("intro", "h2")),
		),
	}
	lune.Dependencies = map[string]manifest.Dependency{
		"gears": {
			Specifier: manifest.DependencySpecifier{Name: gears, Version: "^1.0.0", Target: target.Luau},
			Type:      manifest.Standard,
		},
	}
	return source.IndexFile{
		testutil.ID(t, "1.0.0 lune"):   lune,
		testutil.ID(t, "1.0.0 roblox"): testutil.Entry(target.Roblox),
		testutil.ID(t, "0.9.0 luau"):   testutil.Entry(target.Luau),
	}
}

func TestIndexFileRoundTrip(t *testing.T) {
	f := sampleFile(t)
	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "1.0.0 lune") {
		t.Errorf("encoded keys should use the space form:\n%s", data)
	}

	back, err := source.ParseIndexFile(data)
	if err != nil {
		t.Fatalf("ParseIndexFile: %v\n%s", err, data)
	}
	if len(back) != len(f) {
		t.Fatalf("len = %d, want %d", len(back), len(f))
	}
	e := back[testutil.ID(t, "1.0.0 lune")]
	if e.Description != "Widgets" || e.Repository != "https://example.com/acme/widgets" {
		t.Errorf("entry = %+v", e)
	}
	if !e.PublishedAt.Equal(testutil.Published) {
		t.Errorf("PublishedAt = %v", e.PublishedAt)
	}
	if len(e.Docs) != 1 || len(e.Docs[0].Items) != 2 || e.Docs[0].Items[1].Items[0].Hash != "h2" {
		t.Errorf("docs = %+v", e.Docs)
	}
	dep := e.Dependencies["gears"]
	if dep.Type != manifest.Standard || dep.Specifier.Target != target.Luau || dep.Specifier.Name.String() != "acme/gears" {
		t.Errorf("dependency = %+v", dep)
	}
	if rb := back[testutil.ID(t, "1.0.0 roblox")]; len(rb.Target.BuildFiles) != 1 {
		t.Errorf("roblox build files = %v", rb.Target.BuildFiles)
	}

	ids := back.IDs()
	if ids[0].String() != "0.9.0 luau" || ids[1].String() != "1.0.0 roblox" || ids[2].String() != "1.0.0 lune" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestParseIndexFileRejects(t *testing.T) {
	cases := map[string]string{
		"bad key":       "[\"1.0.0+lune\"]\npublished_at = 2024-05-01T12:00:00Z\n[\"1.0.0+lune\".target]\nenvironment = \"lune\"\n",
		"kind mismatch": "[\"1.0.0 lune\"]\npublished_at = 2024-05-01T12:00:00Z\n[\"1.0.0 lune\".target]\nenvironment = \"luau\"\n",
		"bad toml":      "[[[",
		"bad doc":       "[\"1.0.0 luau\"]\npublished_at = 2024-05-01T12:00:00Z\ndocs = [{ kind = \"page\", name = \"x\" }]\n[\"1.0.0 luau\".target]\nenvironment = \"luau\"\n",
	}
	for name, src := range cases {
		_, err := source.ParseIndexFile([]byte(src))
		if !errors.Is(err, source.ErrMalformedIndex) {
			t.Errorf("%s: err = %v, want ErrMalformedIndex", name, err)
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("%s: a stored file must not surface as client input", name)
		}
	}

	empty, err := source.ParseIndexFile(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty document = %v, %v", empty, err)
	}
}

func TestBackendsAgree(t *testing.T) {
	files := map[string]source.IndexFile{"acme/widgets": sampleFile(t)}
	backends := map[string]source.Backend{
		"dir": source.DirBackend{Root: testutil.DirIndex(t, files)},
		"git": source.GitBackend{Path: testutil.GitIndex(t, files)},
	}
	for name, b := range backends {
		repo, err := b.Open()
		if err != nil {
			t.Fatalf("%s: Open: %v", name, err)
		}
		tree, err := repo.RootTree()
		if err != nil {
			t.Fatalf("%s: RootTree: %v", name, err)
		}

		text, found, err := tree.ReadFile("acme", "widgets")
		if err != nil || !found {
			t.Fatalf("%s: ReadFile = %v, %v", name, found, err)
		}
		if _, err := source.ParseIndexFile([]byte(text)); err != nil {
			t.Errorf("%s: stored file does not parse: %v", name, err)
		}

		if _, found, err := tree.ReadFile("acme", "missing"); found || err != nil {
			t.Errorf("%s: missing file = %v, %v", name, found, err)
		}
		if _, found, err := tree.ReadFile("nobody", "widgets"); found || err != nil {
			t.Errorf("%s: missing scope = %v, %v", name, found, err)
		}
		if _, _, err := tree.ReadFile("..", "widgets"); err == nil {
			t.Errorf("%s: traversal should fail", name)
		}

		var walked []string
		err = tree.Walk(func(segments []string, _ string) error {
			walked = append(walked, strings.Join(segments, "/"))
			return nil
		})
		if err != nil {
			t.Fatalf("%s: Walk: %v", name, err)
		}
		if len(walked) != 1 || walked[0] != "acme/widgets" {
			t.Errorf("%s: Walk visited %v", name, walked)
		}
	}
}

func TestBackendsTreatNonFilesAsAbsent(t *testing.T) {
	files := map[string]source.IndexFile{
		"acme/widgets":        sampleFile(t),
		"solo":                sampleFile(t),
		"acme/nested/widgets": sampleFile(t),
	}
	backends := map[string]source.Backend{
		"dir": source.DirBackend{Root: testutil.DirIndex(t, files)},
		"git": source.GitBackend{Path: testutil.GitIndex(t, files)},
	}
	for name, b := range backends {
		repo, err := b.Open()
		if err != nil {
			t.Fatalf("%s: Open: %v", name, err)
		}
		tree, err := repo.RootTree()
		if err != nil {
			t.Fatalf("%s: RootTree: %v", name, err)
		}
		// A file where the scope directory should be.
		if _, found, err := tree.ReadFile("solo", "widgets"); found || err != nil {
			t.Errorf("%s: scope is a file = %v, %v", name, found, err)
		}
		// A directory where the index file should be.
		if _, found, err := tree.ReadFile("acme", "nested"); found || err != nil {
			t.Errorf("%s: name is a directory = %v, %v", name, found, err)
		}
	}

	r := source.NewReader(source.DirBackend{Root: testutil.DirIndex(t, files)})
	defer r.Close()
	if _, err := r.Load(context.Background(), "solo", "widgets"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Load(solo/widgets) err = %v, want ErrNotFound", err)
	}
	if _, err := r.Load(context.Background(), "acme", "nested"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Load(acme/nested) err = %v, want ErrNotFound", err)
	}
}

func TestGitBackendReadsCommittedTree(t *testing.T) {
	root := testutil.GitIndex(t, map[string]source.IndexFile{"acme/widgets": sampleFile(t)})
	// Uncommitted files are invisible.
	if err := os.WriteFile(filepath.Join(root, "acme", "extra"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err := source.GitBackend{Path: root}.Open()
	if err != nil {
		t.Fatal(err)
	}
	tree, err := repo.RootTree()
	if err != nil {
		t.Fatal(err)
	}
	if _, found, _ := tree.ReadFile("acme", "extra"); found {
		t.Error("working tree file should not be visible")
	}

	if _, err := (source.GitBackend{Path: t.TempDir()}).Open(); err == nil {
		t.Error("opening a non-repository should fail")
	}
}

func TestReader(t *testing.T) {
	r := source.NewReader(source.DirBackend{Root: testutil.DirIndex(t, map[string]source.IndexFile{
		"acme/widgets": sampleFile(t),
		"acme/broken":  nil,
	})})
	defer r.Close()
	ctx := context.Background()

	f, err := r.Load(ctx, "acme", "widgets")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f) != 3 {
		t.Errorf("len = %d", len(f))
	}

	_, err = r.Load(ctx, "acme", "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}

	empty, err := r.Load(ctx, "acme", "broken")
	if err != nil || len(empty) != 0 {
		t.Errorf("empty file = %v, %v", empty, err)
	}

	count := 0
	if err := r.Walk(ctx, func([]string, string) error { count++; return nil }); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("walked %d files, want 2", count)
	}
}

func TestReaderConcurrentLoads(t *testing.T) {
	r := source.NewReader(source.DirBackend{Root: testutil.DirIndex(t, map[string]source.IndexFile{
		"acme/widgets": sampleFile(t),
	})})
	defer r.Close()

	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			_, err := r.Load(context.Background(), "acme", "widgets")
			errs <- err
		}()
	}
	for i := 0; i < 16; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("Load: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for loads")
		}
	}
}

func TestReaderClosed(t *testing.T) {
	r := source.NewReader(source.DirBackend{Root: t.TempDir()})
	r.Close()
	r.Close()
	if _, err := r.Load(context.Background(), "a", "b"); !errors.Is(err, source.ErrReaderClosed) {
		t.Errorf("err = %v, want ErrReaderClosed", err)
	}
}

func TestReaderBackendFailure(t *testing.T) {
	r := source.NewReader(source.GitBackend{Path: t.TempDir()})
	defer r.Close()
	_, err := r.Load(context.Background(), "acme", "widgets")
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want an internal failure", err)
	}
}

func TestPackageRefs(t *testing.T) {
	pn, _ := names.ParsePackageName("acme/widgets")
	wn, _ := names.ParseWallyPackageName("roblox/roact")

	native := source.NativeRef(&source.NativePackageRef{
		Name:     pn,
		Version:  version.MustParse("1.0.0"),
		IndexURL: "https://example.com/index",
		Target:   target.Target{Environment: target.Luau, Lib: "init.luau"},
	})
	wally := source.WallyRef(&source.WallyPackageRef{
		Name:     wn,
		Version:  version.MustParse("17.0.1"),
		IndexURL: "https://example.com/wally",
	})

	if native.IsForeignCompat() || !wally.IsForeignCompat() {
		t.Error("only wally references are foreign compat")
	}
	if !native.UseNewStructure() || wally.UseNewStructure() {
		t.Error("UseNewStructure mismatch")
	}
	if native.TargetKind() != target.Luau || wally.TargetKind() != target.Roblox {
		t.Errorf("kinds = %s, %s", native.TargetKind(), wally.TargetKind())
	}
	if _, ok := native.Source().(source.NativeSource); !ok {
		t.Errorf("native source = %T", native.Source())
	}
	if s, ok := wally.Source().(source.WallySource); !ok || s.IndexURL() != "https://example.com/wally" {
		t.Errorf("wally source = %#v", wally.Source())
	}

	for _, ref := range []source.PackageRefs{native, wally} {
		data, err := json.Marshal(ref)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"ref_ty":"`+ref.Tag()+`"`) {
			t.Errorf("missing tag in %s", data)
		}
		var back source.PackageRefs
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back.Tag() != ref.Tag() || back.TargetKind() != ref.TargetKind() || back.Source() != ref.Source() {
			t.Errorf("round trip changed %s", data)
		}
	}

	var bad source.PackageRefs
	if err := json.Unmarshal([]byte(`{"ref_ty":"npm"}`), &bad); err == nil {
		t.Error("unknown ref_ty should fail")
	}
}

func TestPackageRefsZeroValue(t *testing.T) {
	var zero source.PackageRefs
	if !zero.IsZero() || zero.Tag() != "" {
		t.Errorf("zero value: IsZero = %v, Tag = %q", zero.IsZero(), zero.Tag())
	}
	if zero.IsForeignCompat() || zero.UseNewStructure() || zero.TargetKind() != "" ||
		zero.Source() != nil || zero.Dependencies() != nil {
		t.Error("zero value accessors should return zero values")
	}

	_, err := json.Marshal(struct{ Ref source.PackageRefs }{})
	if !errors.Is(err, source.ErrEmptyRef) {
		t.Errorf("marshal err = %v, want ErrEmptyRef", err)
	}
}
