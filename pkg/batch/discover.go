package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover returns the simulation files under root, sorted by path. A file
// root is returned as-is when it matches the configured extensions.
func Discover(root string, cfg *Config) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("batch: discover %s: %w", root, err)
	}
	if !info.IsDir() {
		if cfg.MatchesExtension(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && !cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if cfg.MatchesExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: discover %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// DiscoverAll runs Discover for every root and concatenates the results,
// dropping duplicates.
func DiscoverAll(roots []string, cfg *Config) ([]string, error) {
	seen := make(map[string]bool)
	var all []string
	for _, root := range roots {
		paths, err := Discover(root, cfg)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				all = append(all, p)
			}
		}
	}
	return all, nil
}
