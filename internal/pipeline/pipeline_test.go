package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeusData/schemamemo/internal/config"
	"github.com/DeusData/schemamemo/internal/store"
)

const userSchema = "export const User = z.object({ name: z.string() });\n"

func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "src", "schemas.ts"), userSchema)
	writeTestFile(t, filepath.Join(dir, "src", "plain.ts"), "export const answer = 42;\n")
	return dir
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func run(t *testing.T, s *store.Store, dir string, opts Options) *Summary {
	t.Helper()
	sum, err := New(context.Background(), s, dir, opts).Run()
	if err != nil {
		t.Fatalf("Pipeline.Run: %v", err)
	}
	return sum
}

func TestPipelineRunInPlace(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	sum := run(t, s, dir, Options{})
	if !sum.Full || sum.Processed != 2 || sum.Rewritten != 1 || sum.Sites != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	got := readTestFile(t, filepath.Join(dir, "src", "schemas.ts"))
	if !strings.HasPrefix(got, `export const User = _buildZodSchema("`) ||
		!strings.HasSuffix(got, `() => { return z.object({ name: z.string() }); });`+"\n") {
		t.Errorf("rewritten file = %s", got)
	}
	if plain := readTestFile(t, filepath.Join(dir, "src", "plain.ts")); plain != "export const answer = 42;\n" {
		t.Errorf("untouched file changed: %s", plain)
	}

	p := New(context.Background(), s, dir, Options{})
	sites, err := s.ListCallSites(p.ProjectName, "")
	if err != nil {
		t.Fatalf("ListCallSites: %v", err)
	}
	if len(sites) != 1 || sites[0].RelPath != "src/schemas.ts" || sites[0].StartLine != 1 || sites[0].StartCol != 20 || sites[0].EndCol != 50 {
		t.Fatalf("sites = %+v", sites)
	}
	if !strings.Contains(got, sites[0].Key) {
		t.Errorf("recorded key %s not in output", sites[0].Key)
	}
	hashes, _ := s.GetFileHashes(p.ProjectName)
	if len(hashes) != 2 {
		t.Errorf("hashes = %v", hashes)
	}
}

func TestPipelineIncremental(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	run(t, s, dir, Options{})
	first := readTestFile(t, filepath.Join(dir, "src", "schemas.ts"))

	sum := run(t, s, dir, Options{})
	if sum.Full || sum.Processed != 0 || sum.Unchanged != 2 || sum.Sites != 1 {
		t.Fatalf("noop summary = %+v", sum)
	}
	if got := readTestFile(t, filepath.Join(dir, "src", "schemas.ts")); got != first {
		t.Errorf("noop run changed output")
	}

	// Editing a wrapped file keeps the existing wrapper and its key.
	writeTestFile(t, filepath.Join(dir, "src", "schemas.ts"), first+"export const Post = z.object({ title: z.string() });\n")
	sum = run(t, s, dir, Options{})
	if sum.Processed != 1 || sum.Wrapped != 1 || sum.Sites != 2 {
		t.Fatalf("edit summary = %+v", sum)
	}
	got := readTestFile(t, filepath.Join(dir, "src", "schemas.ts"))
	if !strings.HasPrefix(got, first) || strings.Count(got, "_buildZodSchema(") != 2 {
		t.Errorf("edited output = %s", got)
	}
}

func TestPipelineRemovedFiles(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	run(t, s, dir, Options{})
	if err := os.Remove(filepath.Join(dir, "src", "schemas.ts")); err != nil {
		t.Fatal(err)
	}
	sum := run(t, s, dir, Options{})
	if sum.Removed != 1 || sum.Sites != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestPipelineOutDir(t *testing.T) {
	dir := setupTestRepo(t)
	out := filepath.Join(t.TempDir(), "wrapped")
	s := openStore(t)

	sum := run(t, s, dir, Options{OutDir: out})
	if sum.Rewritten != 1 || sum.Sites != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if src := readTestFile(t, filepath.Join(dir, "src", "schemas.ts")); src != userSchema {
		t.Errorf("source modified: %s", src)
	}
	if got := readTestFile(t, filepath.Join(out, "src", "schemas.ts")); !strings.Contains(got, "_buildZodSchema(") {
		t.Errorf("mirrored output = %s", got)
	}
	if got := readTestFile(t, filepath.Join(out, "src", "plain.ts")); got != "export const answer = 42;\n" {
		t.Errorf("mirrored plain = %s", got)
	}

	// Sources are unchanged, so the second run is a no-op.
	sum = run(t, s, dir, Options{OutDir: out})
	if sum.Processed != 0 {
		t.Errorf("second run processed %d files", sum.Processed)
	}

	if err := os.Remove(filepath.Join(dir, "src", "plain.ts")); err != nil {
		t.Fatal(err)
	}
	run(t, s, dir, Options{OutDir: out})
	if _, err := os.Stat(filepath.Join(out, "src", "plain.ts")); !os.IsNotExist(err) {
		t.Errorf("expected mirrored output of removed source to be deleted, got %v", err)
	}
}

func TestPipelineOutDirInsideRepo(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	run(t, s, dir, Options{OutDir: filepath.Join(dir, "wrapped")})
	sum := run(t, s, dir, Options{OutDir: filepath.Join(dir, "wrapped")})
	if sum.Discovered != 2 {
		t.Errorf("output directory was discovered: %d files", sum.Discovered)
	}
}

func TestPipelineDryRun(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	sum := run(t, s, dir, Options{DryRun: true})
	if !sum.DryRun || sum.Wrapped != 1 || sum.Rewritten != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Files) != 2 {
		t.Errorf("files = %d, want 2", len(sum.Files))
	}
	if src := readTestFile(t, filepath.Join(dir, "src", "schemas.ts")); src != userSchema {
		t.Errorf("dry run modified source")
	}
	projects, _ := s.ListProjects()
	if len(projects) != 0 {
		t.Errorf("dry run recorded projects: %v", projects)
	}
}

func TestPipelineOptionsChangeForcesFull(t *testing.T) {
	dir := setupTestRepo(t)
	out := filepath.Join(t.TempDir(), "wrapped")
	s := openStore(t)

	run(t, s, dir, Options{OutDir: out})
	writeTestFile(t, filepath.Join(dir, config.FileName), "key_mode: raw\n")

	sum := run(t, s, dir, Options{OutDir: out})
	if !sum.Full || sum.Processed != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	got := readTestFile(t, filepath.Join(out, "src", "schemas.ts"))
	if !strings.Contains(got, `_buildZodSchema("src/schemas.ts:1:20:1:50", `) {
		t.Errorf("output = %s", got)
	}
}

func TestPipelineOptionsChangePrunesRemovedFiles(t *testing.T) {
	dir := setupTestRepo(t)
	extra := filepath.Join(dir, "src", "extra.ts")
	writeTestFile(t, extra, "export const Extra = z.object({ id: z.number() });\n")
	out := filepath.Join(t.TempDir(), "wrapped")
	s := openStore(t)

	if sum := run(t, s, dir, Options{OutDir: out}); sum.Sites != 2 {
		t.Fatalf("first run sites = %d, want 2", sum.Sites)
	}
	if err := os.Remove(extra); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, config.FileName), "key_mode: raw\n")

	sum := run(t, s, dir, Options{OutDir: out})
	if !sum.Full || sum.Removed != 1 || sum.Sites != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	sites, err := s.ListCallSites(sum.Project, "src/extra.ts")
	if err != nil {
		t.Fatal(err)
	}
	if len(sites) != 0 {
		t.Errorf("sites of removed file survived: %+v", sites)
	}
	hashes, err := s.GetFileHashes(sum.Project)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := hashes["src/extra.ts"]; ok {
		t.Error("hash of removed file survived")
	}
	if _, err := os.Stat(filepath.Join(out, "src", "extra.ts")); !os.IsNotExist(err) {
		t.Errorf("mirrored output of removed file: stat err = %v", err)
	}
}

func TestPipelineParseErrors(t *testing.T) {
	dir := setupTestRepo(t)
	broken := "export const = z.object({;\n"
	writeTestFile(t, filepath.Join(dir, "src", "broken.ts"), broken)
	s := openStore(t)

	sum := run(t, s, dir, Options{})
	if sum.ParseErrors != 1 || sum.Sites != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := readTestFile(t, filepath.Join(dir, "src", "broken.ts")); got != broken {
		t.Errorf("broken file modified: %s", got)
	}
}

func TestPipelineKeyCollisions(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a", "models", "user.ts"), userSchema)
	writeTestFile(t, filepath.Join(dir, "b", "models", "user.ts"), userSchema)
	s := openStore(t)

	sum := run(t, s, dir, Options{DryRun: true})
	if len(sum.Collisions) != 1 {
		t.Fatalf("collisions = %+v", sum.Collisions)
	}
	c := sum.Collisions[0]
	if len(c.Files) != 2 || c.Files[0] != "a/models/user.ts" || c.Files[1] != "b/models/user.ts" {
		t.Errorf("collision files = %v", c.Files)
	}
}

func TestPipelineRunCancellation(t *testing.T) {
	dir := setupTestRepo(t)
	s := openStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, s, dir, Options{}).Run()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProjectNameFromPath(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/home/user/web", "home-user-web"},
		{"/Users/dev/projects/app", "Users-dev-projects-app"},
		{"/single", "single"},
		{"/", "root"},
	}
	for _, tt := range tests {
		got := ProjectNameFromPath(tt.path)
		if got != tt.want {
			t.Errorf("ProjectNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
