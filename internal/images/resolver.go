package images

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"zaehlerwerk/internal/readings/domain"
)

// Mode selects how a photo reaches its destination.
type Mode string

const (
	ModeCopy    Mode = "copy"
	ModeSymlink Mode = "symlink"
)

// ParseMode normalizes a configured mode, defaulting to copy.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeSymlink)) {
		return ModeSymlink
	}
	return ModeCopy
}

// Placement records where a reading's photo ended up.
type Placement struct {
	// Source is the canonical file the photo was taken from.
	Source string
	// Dest is the absolute path in the visible tree.
	Dest string
	// Rel is the destination relative to the visible root, with
	// forward slashes for spreadsheet links.
	Rel string
}

// Resolver places observation photos from the hidden canonical store
// into the visible <object>/<room> tree.
type Resolver struct {
	canonicalRoot string
	visibleRoot   string
	mode          Mode
	index         Index
}

// NewResolver indexes the canonical store once up front.
func NewResolver(canonicalRoot, visibleRoot string, mode Mode) *Resolver {
	return &Resolver{
		canonicalRoot: canonicalRoot,
		visibleRoot:   visibleRoot,
		mode:          mode,
		index:         BuildIndex(canonicalRoot),
	}
}

// Place resolves one reading's photo and copies or links it into the
// visible tree under <object>/<room>/<counter>_<date>_<file>. It
// returns false without error when the reading carries no photo or the
// store has no source for it. Existing destinations are left as they
// are.
func (r *Resolver) Place(objectID string, reading readings.Reading) (Placement, bool, error) {
	if reading.ImageFile == "" || objectID == "" || reading.RoomID == "" {
		return Placement{}, false, nil
	}
	file := filepath.Base(filepath.FromSlash(reading.ImageFile))

	src := r.index.Resolve(objectID, reading.RoomID, file)
	if src == "" {
		src = filepath.Join(r.canonicalRoot, objectID+"_"+reading.RoomID+"_"+file)
	}
	if _, err := os.Stat(src); err != nil {
		return Placement{}, false, nil
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return Placement{}, false, err
	}

	destDir := filepath.Join(r.visibleRoot, SafeName(reading.Object), SafeName(reading.Room))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Placement{}, false, err
	}

	date := "nodate"
	if reading.Taken.ISO != "" {
		date = strings.ReplaceAll(reading.Taken.ISO, "-", "")
	}
	dest := filepath.Join(destDir, SafeName(reading.Name)+"_"+date+"_"+file)

	if _, err := os.Lstat(dest); err != nil {
		var placeErr error
		if r.mode == ModeSymlink {
			placeErr = os.Symlink(absSrc, dest)
		} else {
			placeErr = copyFile(absSrc, dest)
		}
		if placeErr != nil {
			return Placement{}, false, placeErr
		}
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return Placement{}, false, err
	}
	return Placement{Source: absSrc, Dest: absDest, Rel: r.relTo(absDest)}, true, nil
}

func (r *Resolver) relTo(dest string) string {
	root, err := filepath.Abs(r.visibleRoot)
	if err != nil {
		return filepath.ToSlash(dest)
	}
	rel, err := filepath.Rel(root, dest)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(dest)
	}
	return filepath.ToSlash(rel)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
