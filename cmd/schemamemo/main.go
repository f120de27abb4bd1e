package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeusData/schemamemo/internal/store"
	"github.com/DeusData/schemamemo/internal/tools"
)

var version = "dev"

// dbEnv overrides the manifest location.
const dbEnv = "SCHEMAMEMO_DB"

const usage = `usage: schemamemo <command> [flags]

commands:
  transform [--out DIR] [--dry-run] [--json] [--verbose] <dir>
  file [--strict] [--target bare|global] [--raw-key] <file>
  watch [--verbose]
  mcp
  helper [--target bare|global] [--registration NAME] [--global-object NAME]
  --version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return runMCP(stderr)
	}
	switch args[0] {
	case "--version", "version":
		fmt.Fprintln(stdout, "schemamemo", version)
		return 0
	case "transform":
		return runTransform(args[1:], stdout, stderr)
	case "file":
		return runFile(args[1:], stdout, stderr)
	case "watch":
		return runWatch(args[1:], stderr)
	case "mcp":
		return runMCP(stderr)
	case "helper":
		return runHelper(args[1:], stdout, stderr)
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func openStore() (*store.Store, error) {
	if path := os.Getenv(dbEnv); path != "" {
		return store.OpenPath(path)
	}
	return store.Open()
}

// setupLogging routes slog to stderr. Commands stay quiet below warnings
// unless verbose.
func setupLogging(stderr io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runMCP(stderr io.Writer) int {
	setupLogging(stderr, true)
	s, err := openStore()
	if err != nil {
		fmt.Fprintf(stderr, "store open err=%v\n", err)
		return 1
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	tools.Version = version
	srv := tools.NewServer(s)
	srv.StartWatcher(ctx)

	if err := srv.MCPServer().Run(ctx, mcpTransport()); err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "server err=%v\n", err)
		return 1
	}
	return 0
}
