package lsp

import (
	"os"
	"path/filepath"
)

// ResolveRoot finds the LSP workspace root for file: starting from its
// directory, walk upward looking for any of rootMarkers. The first ancestor
// containing a marker wins; if none is found but the starting directory is
// inside cwd, cwd is returned; otherwise the starting directory itself is
// returned unchanged.
func ResolveRoot(file string, rootMarkers []string, cwd string) string {
	dir := filepath.Dir(file)
	start := dir

	for {
		if hasAnyMarker(dir, rootMarkers) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if isWithin(start, cwd) {
		return cwd
	}
	return start
}

func hasAnyMarker(dir string, markers []string) bool {
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

func isWithin(path, ancestor string) bool {
	rel, err := filepath.Rel(ancestor, path)
	if err != nil {
		return false
	}
	return rel == "." || (len(rel) > 0 && rel[0] != '.' && !filepath.IsAbs(rel))
}
