package discover

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/DeusData/schemamemo/internal/lang"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".idea": true,
	".next": true, ".npm": true, ".nuxt": true, ".nyc_output": true,
	".parcel-cache": true, ".pnpm-store": true, ".svelte-kit": true,
	".svn": true, ".turbo": true, ".vercel": true, ".vscode": true,
	".yarn": true, "bower_components": true, "build": true,
	"coverage": true, "dist": true, "node_modules": true, "out": true,
	"tmp": true, "vendor": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = []string{".min.js", ".bundle.js", ".map", "~"}

// IgnoreFileName is the project-local ignore file, in .gitignore syntax.
const IgnoreFileName = ".schemamemoignore"

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string   // path to an ignore file (default <repo>/.schemamemoignore)
	Exclude    []string // extra globs matched against names and relative paths
	SkipOutDir string   // absolute directory excluded from the walk (output mirror)
}

type matchers struct {
	ignores []*ignore.GitIgnore
	exclude []string
}

func loadMatchers(repoPath string, opts *Options) *matchers {
	m := &matchers{}
	ignFile := filepath.Join(repoPath, IgnoreFileName)
	if opts != nil {
		m.exclude = opts.Exclude
		if opts.IgnoreFile != "" {
			ignFile = opts.IgnoreFile
		}
	}
	for _, p := range []string{filepath.Join(repoPath, ".gitignore"), ignFile} {
		if gi, err := ignore.CompileIgnoreFile(p); err == nil {
			m.ignores = append(m.ignores, gi)
		}
	}
	return m
}

func (m *matchers) skip(name, rel string, isDir bool) bool {
	for _, pattern := range m.exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	if isDir {
		rel += "/"
	}
	for _, gi := range m.ignores {
		if gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}

// Discover walks a repository and returns all JavaScript and TypeScript sources.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := loadMatchers(repoPath, opts)
	var skipOut string
	if opts != nil && opts.SkipOutDir != "" {
		skipOut, _ = filepath.Abs(opts.SkipOutDir)
	}

	var files []FileInfo

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(repoPath, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path == repoPath {
				return nil
			}
			if IGNORE_PATTERNS[info.Name()] || path == skipOut || m.skip(info.Name(), rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		for _, suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}

		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok || isSkippedSuffix(l, path) || m.skip(info.Name(), rel, false) {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: l,
		})
		return nil
	})

	return files, err
}

func isSkippedSuffix(l lang.Language, path string) bool {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return false
	}
	for _, s := range spec.SkipSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
