package pipeline

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/schemamemo/internal/discover"
	"github.com/DeusData/schemamemo/internal/store"
)

// classifyFiles splits files into changed and unchanged based on stored hashes.
// File hashing is parallelized across CPU cores.
func (p *Pipeline) classifyFiles(files []discover.FileInfo, storedHashes map[string]string) (changed, unchanged []discover.FileInfo) {
	if len(storedHashes) == 0 {
		return files, nil
	}

	type hashResult struct {
		Hash string
		Err  error
	}

	results := make([]hashResult, len(files))
	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	g := new(errgroup.Group)
	g.SetLimit(max(numWorkers, 1))
	for i, f := range files {
		g.Go(func() error {
			hash, hashErr := fileHash(f.Path)
			results[i] = hashResult{Hash: hash, Err: hashErr}
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		r := results[i]
		if r.Err != nil {
			changed = append(changed, f)
			continue
		}
		if stored, ok := storedHashes[f.RelPath]; ok && stored == r.Hash {
			unchanged = append(unchanged, f)
		} else {
			changed = append(changed, f)
		}
	}
	return changed, unchanged
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashBytes(data []byte) string {
	h := xxh3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Collision is a LocationKey shared by call sites in different files. Keys
// only see the last two path segments, so a/x/y.ts and b/x/y.ts collide when
// their definitions start and end at the same positions.
type Collision struct {
	Key   string   `json:"key"`
	Files []string `json:"files"`
}

func findCollisions(sites []*store.CallSite) []Collision {
	byKey := map[string]map[string]bool{}
	for _, s := range sites {
		if byKey[s.Key] == nil {
			byKey[s.Key] = map[string]bool{}
		}
		byKey[s.Key][s.RelPath] = true
	}
	var out []Collision
	for key, files := range byKey {
		if len(files) < 2 {
			continue
		}
		c := Collision{Key: key}
		for f := range files {
			c.Files = append(c.Files, f)
		}
		sort.Strings(c.Files)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (p *Pipeline) logCollisions(cs []Collision) {
	for _, c := range cs {
		slog.Warn("pipeline.key_collision", "project", p.ProjectName, "key", c.Key, "files", c.Files)
	}
}
