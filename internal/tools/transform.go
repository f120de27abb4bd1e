package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/pipeline"
	"github.com/DeusData/schemamemo/internal/schemawrap"
)

func (s *Server) handleTransformSource(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	code, ok := args["code"].(string)
	if !ok {
		return errResult("code is required"), nil
	}
	filePath := getStringArg(args, "file_path")
	if filePath == "" {
		filePath = "input.ts"
	}
	l, ok := lang.LanguageForExtension(filepath.Ext(filePath))
	if !ok {
		return errResult(fmt.Sprintf("unsupported file extension: %s", filePath)), nil
	}

	opts := optionsFromArgs(args)
	out, res, err := schemawrap.TransformSource(l, filePath, []byte(code), opts)
	if err != nil {
		if errors.Is(err, schemawrap.ErrSyntax) {
			return errResult(fmt.Sprintf("source has syntax errors, left unchanged: %v", err)), nil
		}
		return errResult(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"language": l,
		"changed":  res.Changed(),
		"output":   string(out),
		"sites":    res.Sites,
		"existing": res.Existing,
		"skipped":  res.Skipped,
	}), nil
}

func optionsFromArgs(args map[string]any) schemawrap.Options {
	opts := schemawrap.DefaultOptions()
	if v := getStringArg(args, "namespace"); v != "" {
		opts.Namespace = v
	}
	if v := getStringArg(args, "method"); v != "" {
		opts.Method = v
	}
	if v := getStringArg(args, "registration"); v != "" {
		opts.Registration = v
	}
	if v := getStringArg(args, "target"); v != "" {
		opts.Target = schemawrap.Target(v)
	}
	if v := getStringArg(args, "key_mode"); v != "" {
		opts.KeyMode = schemawrap.KeyMode(v)
	}
	opts.StrictSelfContainment = getBoolArg(args, "strict")
	return opts
}

func (s *Server) handleTransformProject(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	opts := pipeline.Options{
		OutDir: getStringArg(args, "out_dir"),
		DryRun: getBoolArg(args, "dry_run"),
	}
	sum, err := s.runPipeline(ctx, absPath, opts)
	if err != nil {
		return errResult(fmt.Sprintf("transform failed: %v", err)), nil
	}
	if !opts.DryRun {
		sum.Files = nil
	}
	return jsonResult(sum), nil
}
