package images

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// The canonical store accepts three layouts at once: flat files named
// <objectId>_<roomId>_<file>, files nested under <objectId>/<roomId>/
// directories, and loose files addressable by name only.
var canonicalFlatRE = regexp.MustCompile(`(?i)^([0-9a-f-]{8,})_([0-9a-f-]{8,})_(.+)$`)

type tupleKey struct {
	object string
	room   string
	file   string
}

type roomFileKey struct {
	room string
	file string
}

// Index locates photo files in the hidden canonical store.
type Index struct {
	byTuple    map[tupleKey]string
	byRoomFile map[roomFileKey][]string
	byFile     map[string][]string
}

// BuildIndex walks the canonical root once. A missing root yields an
// empty index.
func BuildIndex(canonicalRoot string) Index {
	idx := Index{
		byTuple:    make(map[tupleKey]string),
		byRoomFile: make(map[roomFileKey][]string),
		byFile:     make(map[string][]string),
	}
	_ = filepath.WalkDir(canonicalRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(canonicalRoot, path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		name := parts[len(parts)-1]
		if m := canonicalFlatRE.FindStringSubmatch(name); m != nil {
			idx.byTuple[tupleKey{m[1], m[2], m[3]}] = path
			key := roomFileKey{m[2], m[3]}
			idx.byRoomFile[key] = append(idx.byRoomFile[key], path)
			idx.byFile[m[3]] = append(idx.byFile[m[3]], path)
			return nil
		}
		if len(parts) >= 3 {
			idx.byTuple[tupleKey{parts[0], parts[1], name}] = path
			key := roomFileKey{parts[1], name}
			idx.byRoomFile[key] = append(idx.byRoomFile[key], path)
		}
		idx.byFile[name] = append(idx.byFile[name], path)
		return nil
	})
	return idx
}

// Resolve finds the canonical source for a photo reference, trying the
// most specific key first.
func (idx Index) Resolve(objectID, roomID, file string) string {
	if p, ok := idx.byTuple[tupleKey{objectID, roomID, file}]; ok {
		return p
	}
	if cands := idx.byRoomFile[roomFileKey{roomID, file}]; len(cands) > 0 {
		return cands[0]
	}
	if cands := idx.byFile[file]; len(cands) > 0 {
		return cands[0]
	}
	return ""
}
