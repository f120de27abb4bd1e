package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/DeusData/schemamemo/internal/config"
	"github.com/DeusData/schemamemo/internal/discover"
	"github.com/DeusData/schemamemo/internal/store"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

type projectState struct {
	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// RunFunc re-runs the transform for a project whose sources changed.
type RunFunc func(ctx context.Context, proj *store.Project) error

// Watcher polls recorded projects for source changes and re-runs the transform.
type Watcher struct {
	store    *store.Store
	runFn    RunFunc
	projects map[string]*projectState
	ctx      context.Context
}

// New creates a Watcher. runFn is called when file changes are detected.
func New(s *store.Store, runFn RunFunc) *Watcher {
	return &Watcher{
		store:    s,
		runFn:    runFn,
		projects: make(map[string]*projectState),
		ctx:      context.Background(),
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling each
// project only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

func (w *Watcher) pollAll() {
	projects, err := w.store.ListProjects()
	if err != nil {
		slog.Warn("watcher.list_projects", "err", err)
		return
	}

	now := time.Now()
	seen := make(map[string]bool, len(projects))
	for _, proj := range projects {
		seen[proj.Name] = true
		state, exists := w.projects[proj.Name]
		if !exists {
			state = &projectState{}
			w.projects[proj.Name] = state
		}
		if exists && now.Before(state.nextPoll) {
			continue
		}
		w.pollProject(proj, state)
	}
	for name := range w.projects {
		if !seen[name] {
			delete(w.projects, name)
		}
	}
}

// pollProject compares a fresh snapshot with the previous one. The first
// poll only records a baseline.
func (w *Watcher) pollProject(proj *store.Project, state *projectState) {
	if _, err := os.Stat(proj.RootPath); err != nil {
		slog.Warn("watcher.root_gone", "project", proj.Name, "path", proj.RootPath)
		state.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(proj)
	if err != nil {
		slog.Warn("watcher.snapshot", "project", proj.Name, "err", err)
		state.nextPoll = time.Now().Add(state.interval)
		return
	}

	interval := pollInterval(len(snap))

	if state.snapshot == nil {
		slog.Debug("watcher.baseline", "project", proj.Name, "files", len(snap))
		state.snapshot = snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(state.snapshot, snap) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "project", proj.Name, "files", len(snap))
	if err := w.runFn(w.ctx, proj); err != nil {
		slog.Warn("watcher.run", "project", proj.Name, "err", err)
		// Keep old snapshot so we retry next cycle
		state.nextPoll = time.Now().Add(interval)
		return
	}

	// In-place runs rewrite sources; take the baseline after the run.
	if after, err := captureSnapshot(proj); err == nil {
		snap = after
	}
	state.snapshot = snap
	state.interval = pollInterval(len(snap))
	state.nextPoll = time.Now().Add(state.interval)
}

// captureSnapshot discovers the project's sources the way the pipeline does
// and records mtime+size for each file.
func captureSnapshot(proj *store.Project) (map[string]fileSnapshot, error) {
	cfg := config.Load(proj.RootPath)
	files, err := discover.Discover(context.Background(), proj.RootPath, &discover.Options{
		Exclude:    cfg.Exclude,
		SkipOutDir: proj.OutDir,
	})
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
