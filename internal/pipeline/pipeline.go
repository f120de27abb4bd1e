package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeusData/schemamemo/internal/config"
	"github.com/DeusData/schemamemo/internal/discover"
	"github.com/DeusData/schemamemo/internal/schemawrap"
	"github.com/DeusData/schemamemo/internal/store"
)

// Options configures a pipeline run.
type Options struct {
	// OutDir mirrors transformed files under this directory instead of
	// rewriting sources in place.
	OutDir string
	// DryRun transforms every file but writes neither outputs nor state.
	DryRun bool
}

// Pipeline wraps the schema definitions of one repository.
type Pipeline struct {
	ctx         context.Context
	Store       *store.Store
	RepoPath    string
	ProjectName string
	opts        Options
	cfg         *config.Config
}

// FileResult is the outcome for one transformed file.
type FileResult struct {
	RelPath  string            `json:"rel_path"`
	Sites    []schemawrap.Site `json:"sites,omitempty"`
	Existing []schemawrap.Site `json:"existing,omitempty"`
	Written  bool              `json:"written"`
	Error    string            `json:"error,omitempty"`

	file    discover.FileInfo
	output  []byte
	srcHash string
	outHash string
}

// Summary reports a finished run.
type Summary struct {
	Project     string        `json:"project"`
	Full        bool          `json:"full"`
	DryRun      bool          `json:"dry_run"`
	Discovered  int           `json:"discovered"`
	Processed   int           `json:"processed"`
	Unchanged   int           `json:"unchanged"`
	Rewritten   int           `json:"rewritten"`
	Wrapped     int           `json:"wrapped"`
	Sites       int           `json:"sites"`
	ParseErrors int           `json:"parse_errors"`
	Removed     int           `json:"removed"`
	Collisions  []Collision   `json:"collisions,omitempty"`
	Files       []*FileResult `json:"files,omitempty"`
	Elapsed     string        `json:"elapsed"`
}

// New creates a new Pipeline.
func New(ctx context.Context, s *store.Store, repoPath string, opts Options) *Pipeline {
	if abs, err := filepath.Abs(repoPath); err == nil {
		repoPath = abs
	}
	if opts.OutDir != "" {
		if abs, err := filepath.Abs(opts.OutDir); err == nil {
			opts.OutDir = abs
		}
	}
	return &Pipeline{
		ctx:         ctx,
		Store:       s,
		RepoPath:    repoPath,
		ProjectName: ProjectNameFromPath(repoPath),
		opts:        opts,
	}
}

// ProjectNameFromPath derives a unique project name from an absolute path
// by replacing path separators with dashes and trimming the leading dash.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.ReplaceAll(cleaned, "/", "-")
	name = strings.TrimLeft(name, "-")
	if name == "" {
		return "root"
	}
	return name
}

func (p *Pipeline) checkCancel() error {
	return p.ctx.Err()
}

// Run discovers, transforms and records the repository. Files whose content
// hash matches the previous run are skipped unless the effective options or
// the output directory changed.
func (p *Pipeline) Run() (*Summary, error) {
	start := time.Now()
	slog.Info("pipeline.start", "project", p.ProjectName, "path", p.RepoPath, "out", p.opts.OutDir, "dry_run", p.opts.DryRun)

	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	p.cfg = config.Load(p.RepoPath)
	fingerprint := p.cfg.Fingerprint()

	files, err := discover.Discover(p.ctx, p.RepoPath, &discover.Options{
		Exclude:    p.cfg.Exclude,
		SkipOutDir: p.opts.OutDir,
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	sum := &Summary{Project: p.ProjectName, DryRun: p.opts.DryRun, Discovered: len(files)}

	// Stored state is pruned of deleted files on every run; hashes only skip
	// work while the options and output directory are unchanged.
	changed, unchanged := files, []discover.FileInfo(nil)
	stored := map[string]string{}
	if !p.opts.DryRun {
		stored, err = p.Store.GetFileHashes(p.ProjectName)
		if err != nil {
			return nil, err
		}
		if prev, err := p.Store.GetProject(p.ProjectName); err == nil &&
			prev.OptionsHash == fingerprint && prev.OutDir == p.opts.OutDir {
			changed, unchanged = p.classifyFiles(files, stored)
		}
	}
	sum.Full = len(unchanged) == 0
	sum.Processed = len(changed)
	sum.Unchanged = len(unchanged)
	slog.Info("incremental.classify", "changed", len(changed), "unchanged", len(unchanged), "full", sum.Full)

	results, err := p.transformFiles(changed)
	if err != nil {
		return nil, err
	}
	sum.Files = results
	for _, r := range results {
		sum.Wrapped += len(r.Sites)
		if r.Error != "" {
			sum.ParseErrors++
		}
	}

	if p.opts.DryRun {
		sum.Sites = sum.Wrapped
		sum.Collisions = findCollisions(collectSites(p.ProjectName, results))
		p.logCollisions(sum.Collisions)
		sum.Elapsed = time.Since(start).String()
		slog.Info("pipeline.done", "project", p.ProjectName, "dry_run", true, "wrapped", sum.Wrapped)
		return sum, nil
	}

	if err := p.writeOutputs(results); err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Written {
			sum.Rewritten++
		}
	}

	removed := p.deletedFiles(files, stored)
	if err := p.persist(fingerprint, results, removed); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	sum.Removed = len(removed)
	p.removeOutputs(removed)

	sites, err := p.Store.ListCallSites(p.ProjectName, "")
	if err != nil {
		return nil, err
	}
	sum.Sites = len(sites)
	sum.Collisions = findCollisions(sites)
	p.logCollisions(sum.Collisions)

	sum.Elapsed = time.Since(start).String()
	slog.Info("pipeline.done", "project", p.ProjectName, "processed", sum.Processed,
		"rewritten", sum.Rewritten, "sites", sum.Sites, "parse_errors", sum.ParseErrors, "elapsed", sum.Elapsed)
	return sum, nil
}

// transformFiles parses and rewrites files in parallel. Results keep the
// order of files.
func (p *Pipeline) transformFiles(files []discover.FileInfo) ([]*FileResult, error) {
	results := make([]*FileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}
	opts := p.cfg.Options()

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	g, gctx := errgroup.WithContext(p.ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = transformFile(f, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := p.checkCancel(); err != nil {
		return nil, err
	}
	return results, nil
}

// transformFile is a pure function of the file content and options.
func transformFile(f discover.FileInfo, opts schemawrap.Options) *FileResult {
	r := &FileResult{RelPath: f.RelPath, file: f}
	source, err := os.ReadFile(f.Path)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	out, res, err := schemawrap.TransformSource(f.Language, f.Path, source, opts)
	if err != nil {
		if errors.Is(err, schemawrap.ErrSyntax) {
			slog.Warn("transform.parse_error", "path", f.RelPath)
		} else {
			slog.Warn("transform.err", "path", f.RelPath, "err", err)
		}
		r.Error = err.Error()
		r.output = source
		r.srcHash = hashBytes(source)
		r.outHash = r.srcHash
		return r
	}
	r.output = out
	r.srcHash = hashBytes(source)
	r.outHash = r.srcHash
	if res.Changed() {
		r.outHash = hashBytes(out)
	}
	r.Sites = res.Sites
	r.Existing = res.Existing
	if res.Changed() {
		slog.Debug("transform.file", "path", f.RelPath, "sites", len(res.Sites))
	}
	return r
}

// writeOutputs writes transformed files. In place, only rewritten files are
// touched; with an output directory every processed file is mirrored.
func (p *Pipeline) writeOutputs(results []*FileResult) error {
	for _, r := range results {
		if r.output == nil {
			continue
		}
		dst := r.file.Path
		if p.opts.OutDir != "" {
			dst = filepath.Join(p.opts.OutDir, filepath.FromSlash(r.RelPath))
		} else if len(r.Sites) == 0 {
			continue
		}
		if err := writeFile(dst, r.output, r.file.Path); err != nil {
			return fmt.Errorf("write %s: %w", r.RelPath, err)
		}
		r.Written = len(r.Sites) > 0
	}
	return nil
}

// stateHash is the hash of what the source path holds after the run.
func (p *Pipeline) stateHash(r *FileResult) string {
	if p.opts.OutDir != "" {
		return r.srcHash
	}
	return r.outHash
}

// persist records the run in one transaction.
func (p *Pipeline) persist(fingerprint string, results []*FileResult, removed []string) error {
	return p.Store.WithTransaction(func(tx *store.Store) error {
		if err := tx.UpsertProject(&store.Project{
			Name:        p.ProjectName,
			RootPath:    p.RepoPath,
			OutDir:      p.opts.OutDir,
			OptionsHash: fingerprint,
		}); err != nil {
			return fmt.Errorf("upsert project: %w", err)
		}
		for _, r := range results {
			if r.output == nil {
				continue
			}
			if err := tx.UpsertFileHash(p.ProjectName, r.RelPath, p.stateHash(r)); err != nil {
				return fmt.Errorf("upsert hash: %w", err)
			}
			if err := tx.ReplaceCallSites(p.ProjectName, r.RelPath, callSites(p.ProjectName, r)); err != nil {
				return err
			}
		}
		for _, rel := range removed {
			if err := tx.DeleteFileHash(p.ProjectName, rel); err != nil {
				return fmt.Errorf("delete hash: %w", err)
			}
			if err := tx.DeleteCallSites(p.ProjectName, rel); err != nil {
				return fmt.Errorf("delete call sites: %w", err)
			}
			slog.Info("incremental.removed", "file", rel)
		}
		return nil
	})
}

// deletedFiles returns previously recorded files that are no longer discovered.
func (p *Pipeline) deletedFiles(current []discover.FileInfo, stored map[string]string) []string {
	currentSet := make(map[string]bool, len(current))
	for _, f := range current {
		currentSet[f.RelPath] = true
	}
	var removed []string
	for rel := range stored {
		if !currentSet[rel] {
			removed = append(removed, rel)
		}
	}
	return removed
}

// removeOutputs deletes mirrored outputs of removed sources.
func (p *Pipeline) removeOutputs(removed []string) {
	if p.opts.OutDir == "" {
		return
	}
	for _, rel := range removed {
		dst := filepath.Join(p.opts.OutDir, filepath.FromSlash(rel))
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			slog.Warn("pipeline.remove_output.err", "path", dst, "err", err)
		}
	}
}

func callSites(project string, r *FileResult) []store.CallSite {
	out := make([]store.CallSite, 0, len(r.Sites)+len(r.Existing))
	for _, group := range [][]schemawrap.Site{r.Sites, r.Existing} {
		for _, s := range group {
			out = append(out, store.CallSite{
				Project:   project,
				Key:       s.Key,
				RelPath:   r.RelPath,
				StartLine: s.Location.Start.Line,
				StartCol:  s.Location.Start.Column,
				EndLine:   s.Location.End.Line,
				EndCol:    s.Location.End.Column,
			})
		}
	}
	return out
}

func collectSites(project string, results []*FileResult) []*store.CallSite {
	var out []*store.CallSite
	for _, r := range results {
		for _, c := range callSites(project, r) {
			out = append(out, &c)
		}
	}
	return out
}

func writeFile(dst string, data []byte, src string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(src); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
