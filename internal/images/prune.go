package images

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Prune removes files from the visible tree that no current reading
// references. Only the object directories named by the expected
// placements are walked, so workbooks at the visible root and other
// objects' trees stay untouched.
func Prune(visibleRoot string, expected []string) int {
	root, err := filepath.Abs(visibleRoot)
	if err != nil {
		return 0
	}

	keep := make(map[string]struct{}, len(expected))
	tops := make(map[string]struct{})
	for _, p := range expected {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		keep[abs] = struct{}{}
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 1 {
			tops[parts[0]] = struct{}{}
		}
	}

	removed := 0
	for top := range tops {
		_ = filepath.WalkDir(filepath.Join(root, top), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				return nil
			}
			if _, ok := keep[abs]; ok {
				return nil
			}
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
			return nil
		})
	}
	return removed
}
