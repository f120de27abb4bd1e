package schemawrap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DeusData/schemamemo/internal/syntax"
)

// LocationKey derives the cache key of a call-site from the last two segments
// of its file path and its span. Keys are stable across checkouts in different
// directories and change whenever the call moves or its span changes.
func LocationKey(path string, loc syntax.Location, mode KeyMode) string {
	input := fmt.Sprintf("%s:%d:%d:%d:%d",
		pathSuffix(path), loc.Start.Line, loc.Start.Column, loc.End.Line, loc.End.Column)
	if mode == KeyRaw {
		return input
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

func pathSuffix(path string) string {
	if path == "" {
		return "unknown"
	}
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, "/")
}
