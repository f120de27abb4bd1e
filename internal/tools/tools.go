package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/schemamemo/internal/pipeline"
	"github.com/DeusData/schemamemo/internal/store"
	"github.com/DeusData/schemamemo/internal/watcher"
)

// Version is reported to MCP clients.
var Version = "dev"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp   *mcp.Server
	store *store.Store
	// runMu serializes pipeline runs between tool calls and the watcher.
	runMu sync.Mutex
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(s *store.Store) *Server {
	srv := &Server{
		store: s,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "schemamemo",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// StartWatcher re-runs recorded projects in the background when their
// sources change, until ctx is cancelled.
func (s *Server) StartWatcher(ctx context.Context) {
	w := watcher.New(s.store, s.Rerun)
	go w.Run(ctx)
}

// Rerun runs the pipeline for a recorded project with its stored settings.
func (s *Server) Rerun(ctx context.Context, proj *store.Project) error {
	_, err := s.runPipeline(ctx, proj.RootPath, pipeline.Options{OutDir: proj.OutDir})
	return err
}

func (s *Server) runPipeline(ctx context.Context, repoPath string, opts pipeline.Options) (*pipeline.Summary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return pipeline.New(ctx, s.store, repoPath, opts).Run()
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "transform_source",
		Description: "Wrap every top-level object-schema definition (z.object({...}) by default) in the given source with a memoizing registration call keyed by its location. Returns the rewritten source, the wrapped call sites and skip counts. Nothing is written to disk.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"code": {
					"type": "string",
					"description": "JavaScript or TypeScript source to transform"
				},
				"file_path": {
					"type": "string",
					"description": "Path of the source; selects the language by extension and feeds the location key (default 'input.ts')"
				},
				"namespace": {
					"type": "string",
					"description": "Builder namespace identifier (default 'z')"
				},
				"method": {
					"type": "string",
					"description": "Object-schema factory method (default 'object')"
				},
				"registration": {
					"type": "string",
					"description": "Registration function name (default '_buildZodSchema')"
				},
				"target": {
					"type": "string",
					"description": "Emit the registration as a bare call or as a member of the global object",
					"enum": ["bare", "global"]
				},
				"strict": {
					"type": "boolean",
					"description": "Only wrap definitions that use nothing but literals and builder calls"
				},
				"key_mode": {
					"type": "string",
					"description": "'digest' (SHA-256, default) or 'raw' (readable location string)",
					"enum": ["digest", "raw"]
				}
			},
			"required": ["code"]
		}`),
	}, s.handleTransformSource)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "transform_project",
		Description: "Transform every JavaScript/TypeScript file of a repository, in place or mirrored into out_dir. Uses .schemamemo.yaml from the repository root. Incremental: unchanged files are skipped via content hashing. The project is recorded for list_call_sites, lookup_key and the watcher.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Absolute path to the repository"
				},
				"out_dir": {
					"type": "string",
					"description": "Write transformed files under this directory instead of in place"
				},
				"dry_run": {
					"type": "boolean",
					"description": "Report what would be wrapped without writing files or state"
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleTransformProject)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_call_sites",
		Description: "List the wrapped schema definitions recorded for a project, optionally limited to one file (path relative to the project root).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name as returned by list_projects"
				},
				"file": {
					"type": "string",
					"description": "Relative file path filter"
				},
				"limit": {
					"type": "integer",
					"description": "Max results (default 200)"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleListCallSites)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "lookup_key",
		Description: "Find the schema definition a location key belongs to. Use when a runtime registration reports a key.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"key": {
					"type": "string",
					"description": "Location key passed to the registration function"
				}
			},
			"required": ["key"]
		}`),
	}, s.handleLookupKey)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_projects",
		Description: "List all transformed projects with their root path, output directory, last run timestamp and call-site count.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListProjects)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Forget a project: removes its recorded file hashes and call sites. Transformed files are left as they are.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_name": {
					"type": "string",
					"description": "Name of the project to delete"
				}
			},
			"required": ["project_name"]
		}`),
	}, s.handleDeleteProject)
}

// jsonResult marshals data into a text tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := gojson.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := gojson.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getBoolArg extracts a boolean argument from parsed args.
func getBoolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}
