package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"starlint/internal/parser"
)

// Workspace root markers, checked in order at every ancestor directory.
var rootMarkers = []string{"main.star", "kurtosis.yml", ".git"}

// FindRoot walks up from start looking for a directory containing a workspace
// marker. When no marker exists anywhere above, the starting directory itself
// is the root.
func FindRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		abs = start
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	dir := abs
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// Scan expands each path into the source files underneath it: a file path
// yields itself if it has the dialect extension, a directory is walked
// recursively. Exclude patterns match the base name of directories and files
// respectively. The result is deduplicated and sorted.
func Scan(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	dirGlobs, err := compileGlobs(excludeDirs, "dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles, "file")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		base := filepath.Base(path)
		for _, g := range fileGlobs {
			if g.Match(base) {
				return
			}
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", root, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", root, err)
		}

		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(abs), parser.StarExt) {
				add(abs)
			} else {
				slog.Debug("skipping file without dialect extension", "path", abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), parser.StarExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string, kind string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude %s pattern %q: %w", kind, p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
