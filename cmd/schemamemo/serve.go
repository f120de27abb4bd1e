package main

import (
	"context"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/schemamemo/internal/pipeline"
	"github.com/DeusData/schemamemo/internal/store"
	"github.com/DeusData/schemamemo/internal/watcher"
)

func mcpTransport() mcp.Transport {
	return &mcp.StdioTransport{}
}

func runWatch(args []string, stderr io.Writer) int {
	verbose := false
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			verbose = true
		}
	}
	setupLogging(stderr, verbose)

	s, err := openStore()
	if err != nil {
		fmt.Fprintf(stderr, "store open err=%v\n", err)
		return 1
	}
	defer s.Close()

	projects, err := s.ListProjects()
	if err != nil {
		fmt.Fprintf(stderr, "list projects: %v\n", err)
		return 1
	}
	if len(projects) == 0 {
		fmt.Fprintln(stderr, "no projects recorded; run `schemamemo transform <dir>` first")
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(stderr, "watching %d projects (%s)\n", len(projects), s.Path())
	w := watcher.New(s, func(ctx context.Context, proj *store.Project) error {
		sum, err := pipeline.New(ctx, s, proj.RootPath, pipeline.Options{OutDir: proj.OutDir}).Run()
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s: %d processed, %d rewritten\n", proj.Name, sum.Processed, sum.Rewritten)
		return nil
	})
	w.Run(ctx)
	return 0
}
