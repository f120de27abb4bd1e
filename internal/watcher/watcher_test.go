package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeusData/schemamemo/internal/pipeline"
	"github.com/DeusData/schemamemo/internal/store"
)

func TestSnapshotsEqual(t *testing.T) {
	now := time.Now()

	a := map[string]fileSnapshot{
		"main.ts": {modTime: now, size: 100},
		"util.ts": {modTime: now, size: 200},
	}
	b := map[string]fileSnapshot{
		"main.ts": {modTime: now, size: 100},
		"util.ts": {modTime: now, size: 200},
	}
	if !snapshotsEqual(a, b) {
		t.Error("identical snapshots should be equal")
	}

	// Different size
	c := map[string]fileSnapshot{
		"main.ts": {modTime: now, size: 101},
		"util.ts": {modTime: now, size: 200},
	}
	if snapshotsEqual(a, c) {
		t.Error("different size should not be equal")
	}

	// Different mtime
	d := map[string]fileSnapshot{
		"main.ts": {modTime: now.Add(time.Second), size: 100},
		"util.ts": {modTime: now, size: 200},
	}
	if snapshotsEqual(a, d) {
		t.Error("different mtime should not be equal")
	}

	// Missing file
	e := map[string]fileSnapshot{
		"main.ts": {modTime: now, size: 100},
	}
	if snapshotsEqual(a, e) {
		t.Error("different file count should not be equal")
	}

	// Extra file
	f := map[string]fileSnapshot{
		"main.ts": {modTime: now, size: 100},
		"util.ts": {modTime: now, size: 200},
		"new.ts":  {modTime: now, size: 50},
	}
	if snapshotsEqual(a, f) {
		t.Error("extra file should not be equal")
	}

	// Both empty
	if !snapshotsEqual(map[string]fileSnapshot{}, map[string]fileSnapshot{}) {
		t.Error("both empty should be equal")
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{70, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{2000, 5 * time.Second},
		{5000, 11 * time.Second},
		{10000, 21 * time.Second},
		{50000, 60 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tt := range tests {
		got := pollInterval(tt.files)
		if got != tt.expected {
			t.Errorf("pollInterval(%d) = %v, want %v", tt.files, got, tt.expected)
		}
	}
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
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

func resetPolls(w *Watcher) {
	for _, state := range w.projects {
		state.nextPoll = time.Time{}
	}
}

func TestCaptureSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	writeSource(t, filepath.Join(tmpDir, "main.ts"), "export {};\n")
	writeSource(t, filepath.Join(tmpDir, "wrapped", "main.ts"), "export {};\n")

	snap, err := captureSnapshot(&store.Project{Name: "p", RootPath: tmpDir, OutDir: filepath.Join(tmpDir, "wrapped")})
	if err != nil {
		t.Fatal(err)
	}

	if len(snap) != 1 {
		t.Fatalf("expected 1 file, got %d", len(snap))
	}

	s, ok := snap["main.ts"]
	if !ok {
		t.Fatal("expected main.ts in snapshot")
	}
	if s.size == 0 {
		t.Error("expected non-zero size")
	}
	if s.modTime.IsZero() {
		t.Error("expected non-zero modtime")
	}
}

func TestCaptureSnapshotDetectsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "main.ts")
	writeSource(t, src, "export {};\n")
	proj := &store.Project{Name: "p", RootPath: tmpDir}

	snap1, err := captureSnapshot(proj)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().Add(time.Second)
	if err := os.Chtimes(src, now, now); err != nil {
		t.Fatal(err)
	}

	snap2, err := captureSnapshot(proj)
	if err != nil {
		t.Fatal(err)
	}

	if snapshotsEqual(snap1, snap2) {
		t.Error("snapshots should differ after mtime change")
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	s := openStore(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "main.ts")
	writeSource(t, src, "export {};\n")

	if err := s.UpsertProject(&store.Project{Name: filepath.Base(tmpDir), RootPath: tmpDir}); err != nil {
		t.Fatal(err)
	}

	var runCount atomic.Int32
	w := New(s, func(_ context.Context, _ *store.Project) error {
		runCount.Add(1)
		return nil
	})

	// First poll only captures a baseline
	w.pollAll()
	if runCount.Load() != 0 {
		t.Errorf("first poll should not trigger a run, got %d", runCount.Load())
	}

	resetPolls(w)
	w.pollAll()
	if runCount.Load() != 0 {
		t.Errorf("no-change poll should not trigger a run, got %d", runCount.Load())
	}

	now := time.Now().Add(time.Second)
	if err := os.Chtimes(src, now, now); err != nil {
		t.Fatal(err)
	}

	resetPolls(w)
	w.pollAll()
	if runCount.Load() != 1 {
		t.Errorf("changed file should trigger a run, got %d", runCount.Load())
	}
}

func TestWatcherCancellation(t *testing.T) {
	s := openStore(t)
	w := New(s, func(_ context.Context, _ *store.Project) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestWatcherSkipsMissingRoot(t *testing.T) {
	s := openStore(t)

	if err := s.UpsertProject(&store.Project{Name: "ghost", RootPath: "/nonexistent/path"}); err != nil {
		t.Fatal(err)
	}

	var runCount atomic.Int32
	w := New(s, func(_ context.Context, _ *store.Project) error {
		runCount.Add(1)
		return nil
	})

	w.pollAll()
	if runCount.Load() != 0 {
		t.Errorf("should not run for a missing root, got %d", runCount.Load())
	}
}

func TestWatcherNewFileTriggersRun(t *testing.T) {
	s := openStore(t)

	tmpDir := t.TempDir()
	writeSource(t, filepath.Join(tmpDir, "main.ts"), "export {};\n")
	if err := s.UpsertProject(&store.Project{Name: filepath.Base(tmpDir), RootPath: tmpDir}); err != nil {
		t.Fatal(err)
	}

	var runCount atomic.Int32
	w := New(s, func(_ context.Context, _ *store.Project) error {
		runCount.Add(1)
		return nil
	})

	w.pollAll()
	writeSource(t, filepath.Join(tmpDir, "util.ts"), "export {};\n")

	resetPolls(w)
	w.pollAll()
	if runCount.Load() != 1 {
		t.Errorf("new file should trigger a run, got %d", runCount.Load())
	}
}

func TestWatcherDropsDeletedProjects(t *testing.T) {
	s := openStore(t)
	tmpDir := t.TempDir()
	if err := s.UpsertProject(&store.Project{Name: "p", RootPath: tmpDir}); err != nil {
		t.Fatal(err)
	}
	w := New(s, func(_ context.Context, _ *store.Project) error { return nil })
	w.pollAll()
	if len(w.projects) != 1 {
		t.Fatalf("expected 1 tracked project, got %d", len(w.projects))
	}
	if err := s.DeleteProject("p"); err != nil {
		t.Fatal(err)
	}
	w.pollAll()
	if len(w.projects) != 0 {
		t.Errorf("expected deleted project to be dropped, got %d", len(w.projects))
	}
}

// An in-place run rewrites the sources it was triggered by; that rewrite must
// not trigger another run.
func TestWatcherInPlaceRunSettles(t *testing.T) {
	s := openStore(t)
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src", "schemas.ts")
	writeSource(t, src, "export const A = 1;\n")

	if _, err := pipeline.New(context.Background(), s, tmpDir, pipeline.Options{}).Run(); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	var runCount atomic.Int32
	w := New(s, func(ctx context.Context, proj *store.Project) error {
		runCount.Add(1)
		_, err := pipeline.New(ctx, s, proj.RootPath, pipeline.Options{OutDir: proj.OutDir}).Run()
		return err
	})
	w.pollAll()

	writeSource(t, src, "export const A = z.object({ a: z.string() });\n")
	resetPolls(w)
	w.pollAll()
	if runCount.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", runCount.Load())
	}
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "_buildZodSchema(") {
		t.Errorf("source not rewritten: %s", data)
	}

	resetPolls(w)
	w.pollAll()
	if runCount.Load() != 1 {
		t.Errorf("rewrite triggered another run: %d", runCount.Load())
	}
}
