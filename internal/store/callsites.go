package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CallSite is a wrapped schema definition recorded by a pipeline run.
type CallSite struct {
	Project   string `json:"project"`
	Key       string `json:"key"`
	RelPath   string `json:"rel_path"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

const callSiteColumns = "project, site_key, rel_path, start_line, start_col, end_line, end_col"

// ReplaceCallSites replaces all call sites recorded for one file.
func (s *Store) ReplaceCallSites(project, relPath string, sites []CallSite) error {
	if _, err := s.q.Exec("DELETE FROM call_sites WHERE project=? AND rel_path=?", project, relPath); err != nil {
		return fmt.Errorf("clear call sites: %w", err)
	}
	for _, c := range sites {
		_, err := s.q.Exec("INSERT INTO call_sites ("+callSiteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			project, c.Key, relPath, c.StartLine, c.StartCol, c.EndLine, c.EndCol)
		if err != nil {
			return fmt.Errorf("insert call site: %w", err)
		}
	}
	return nil
}

// ListCallSites returns the call sites of a project, optionally limited to
// one file, ordered by file and position.
func (s *Store) ListCallSites(project, relPath string) ([]*CallSite, error) {
	query := "SELECT " + callSiteColumns + " FROM call_sites WHERE project=?"
	args := []any{project}
	if relPath != "" {
		query += " AND rel_path=?"
		args = append(args, relPath)
	}
	query += " ORDER BY rel_path, start_line, start_col"
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list call sites: %w", err)
	}
	defer rows.Close()
	return scanCallSites(rows)
}

// FindCallSite looks up a call site by its key across all projects.
// Returns nil, nil when the key is unknown.
func (s *Store) FindCallSite(key string) (*CallSite, error) {
	var c CallSite
	err := s.q.QueryRow("SELECT "+callSiteColumns+" FROM call_sites WHERE site_key=? LIMIT 1", key).
		Scan(&c.Project, &c.Key, &c.RelPath, &c.StartLine, &c.StartCol, &c.EndLine, &c.EndCol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find call site: %w", err)
	}
	return &c, nil
}

// CountCallSites returns the number of call sites recorded for a project.
func (s *Store) CountCallSites(project string) (int, error) {
	var n int
	err := s.q.QueryRow("SELECT COUNT(*) FROM call_sites WHERE project=?", project).Scan(&n)
	return n, err
}

// DeleteCallSites removes the call sites of one file.
func (s *Store) DeleteCallSites(project, relPath string) error {
	_, err := s.q.Exec("DELETE FROM call_sites WHERE project=? AND rel_path=?", project, relPath)
	return err
}

func scanCallSites(rows *sql.Rows) ([]*CallSite, error) {
	var result []*CallSite
	for rows.Next() {
		var c CallSite
		if err := rows.Scan(&c.Project, &c.Key, &c.RelPath, &c.StartLine, &c.StartCol, &c.EndLine, &c.EndCol); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
