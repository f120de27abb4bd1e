package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	"github.com/DeusData/schemamemo/internal/config"
	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/pipeline"
	"github.com/DeusData/schemamemo/internal/registry"
	"github.com/DeusData/schemamemo/internal/schemawrap"
)

func runTransform(args []string, stdout, stderr io.Writer) int {
	var (
		opts    pipeline.Options
		asJSON  bool
		verbose bool
		dir     string
	)
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "--out":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "--out requires a directory")
				return 2
			}
			i++
			opts.OutDir = args[i]
		case "--dry-run":
			opts.DryRun = true
		case "--json":
			asJSON = true
		case "--verbose", "-v":
			verbose = true
		default:
			if dir != "" {
				fmt.Fprintf(stderr, "unexpected argument %q\n", a)
				return 2
			}
			dir = a
		}
	}
	if dir == "" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fmt.Fprintf(stderr, "not a directory: %s\n", dir)
		return 1
	}
	setupLogging(stderr, verbose)

	s, err := openStore()
	if err != nil {
		fmt.Fprintf(stderr, "store open err=%v\n", err)
		return 1
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	sum, err := pipeline.New(ctx, s, dir, opts).Run()
	if err != nil {
		fmt.Fprintf(stderr, "transform failed: %v\n", err)
		return 1
	}

	if asJSON {
		if !opts.DryRun {
			sum.Files = nil
		}
		b, err := gojson.MarshalIndent(sum, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "json: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
		return 0
	}
	printSummary(stdout, sum)
	return 0
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	mode := "incremental"
	if sum.Full {
		mode = "full"
	}
	if sum.DryRun {
		mode = "dry run"
		for _, f := range sum.Files {
			for _, site := range f.Sites {
				fmt.Fprintf(w, "%s:%d:%d\t%s\n", f.RelPath, site.Location.Start.Line, site.Location.Start.Column, site.Key)
			}
		}
	}
	fmt.Fprintf(w, "%s (%s): %d files, %d processed, %d unchanged, %d rewritten, %d wrapped, %d sites recorded\n",
		sum.Project, mode, sum.Discovered, sum.Processed, sum.Unchanged, sum.Rewritten, sum.Wrapped, sum.Sites)
	if sum.ParseErrors > 0 {
		fmt.Fprintf(w, "%d files left unchanged due to syntax errors\n", sum.ParseErrors)
	}
	if sum.Removed > 0 {
		fmt.Fprintf(w, "%d removed files forgotten\n", sum.Removed)
	}
	for _, c := range sum.Collisions {
		fmt.Fprintf(w, "warning: key %s shared by %v\n", c.Key, c.Files)
	}
}

// runFile prints one rewritten file. Options come from the config of the
// working directory, overridden by flags.
func runFile(args []string, stdout, stderr io.Writer) int {
	opts := config.Load(".").Options()
	var path string
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "--strict":
			opts.StrictSelfContainment = true
		case "--raw-key":
			opts.KeyMode = schemawrap.KeyRaw
		case "--target":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "--target requires bare or global")
				return 2
			}
			i++
			opts.Target = schemawrap.Target(args[i])
		default:
			if path != "" {
				fmt.Fprintf(stderr, "unexpected argument %q\n", a)
				return 2
			}
			path = a
		}
	}
	if path == "" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	setupLogging(stderr, false)

	l, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		fmt.Fprintf(stderr, "unsupported file: %s\n", path)
		return 1
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "read: %v\n", err)
		return 1
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	out, res, err := schemawrap.TransformSource(l, abs, source, opts)
	if err != nil {
		if errors.Is(err, schemawrap.ErrSyntax) {
			_, _ = stdout.Write(source)
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	_, _ = stdout.Write(out)
	fmt.Fprintf(stderr, "%d wrapped, %d already wrapped\n", len(res.Sites), len(res.Existing))
	return 0
}

func runHelper(args []string, stdout, stderr io.Writer) int {
	opts := config.Load(".").Options()
	for i := 0; i < len(args); i++ {
		a := args[i]
		if i+1 >= len(args) {
			fmt.Fprintf(stderr, "%s requires a value\n", a)
			return 2
		}
		i++
		switch a {
		case "--target":
			opts.Target = schemawrap.Target(args[i])
		case "--registration":
			opts.Registration = args[i]
		case "--global-object":
			opts.GlobalObject = args[i]
		default:
			fmt.Fprintf(stderr, "unknown flag %q\n", a)
			return 2
		}
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	fmt.Fprint(stdout, registry.HelperScript(opts))
	return 0
}
