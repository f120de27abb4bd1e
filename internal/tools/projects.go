package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleListProjects(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return errResult(fmt.Sprintf("list projects: %v", err)), nil
	}

	type projectInfo struct {
		Name      string `json:"name"`
		RootPath  string `json:"root_path"`
		OutDir    string `json:"out_dir,omitempty"`
		IndexedAt string `json:"indexed_at"`
		CallSites int    `json:"call_sites"`
	}

	result := make([]projectInfo, 0, len(projects))
	for _, p := range projects {
		n, _ := s.store.CountCallSites(p.Name)
		result = append(result, projectInfo{
			Name:      p.Name,
			RootPath:  p.RootPath,
			OutDir:    p.OutDir,
			IndexedAt: p.IndexedAt,
			CallSites: n,
		})
	}

	return jsonResult(result), nil
}

func (s *Server) handleDeleteProject(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "project_name")
	if name == "" {
		return errResult("project_name is required"), nil
	}

	proj, _ := s.store.GetProject(name)
	if proj == nil {
		return errResult(fmt.Sprintf("project not found: %s", name)), nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	if err := s.store.DeleteProject(name); err != nil {
		return errResult(fmt.Sprintf("delete failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"deleted": name,
		"status":  "ok",
	}), nil
}

func (s *Server) handleListCallSites(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	project := getStringArg(args, "project")
	if project == "" {
		return errResult("project is required"), nil
	}
	if proj, _ := s.store.GetProject(project); proj == nil {
		return errResult(fmt.Sprintf("project not found: %s", project)), nil
	}

	sites, err := s.store.ListCallSites(project, filepath.ToSlash(getStringArg(args, "file")))
	if err != nil {
		return errResult(err.Error()), nil
	}
	limit := getIntArg(args, "limit", 200)
	total := len(sites)
	if limit > 0 && len(sites) > limit {
		sites = sites[:limit]
	}

	return jsonResult(map[string]any{
		"project": project,
		"total":   total,
		"sites":   sites,
	}), nil
}

func (s *Server) handleLookupKey(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	key := getStringArg(args, "key")
	if key == "" {
		return errResult("key is required"), nil
	}

	site, err := s.store.FindCallSite(key)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if site == nil {
		return errResult(fmt.Sprintf("unknown key: %s", key)), nil
	}

	result := map[string]any{"site": site}
	if proj, _ := s.store.GetProject(site.Project); proj != nil {
		result["path"] = filepath.Join(proj.RootPath, filepath.FromSlash(site.RelPath))
	}
	return jsonResult(result), nil
}
