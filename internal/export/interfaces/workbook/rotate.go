package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultKeepWorkbooks is how many timestamped workbooks survive a
// rotation per folder.
const DefaultKeepWorkbooks = 10

// TimestampedName returns the rotating workbook file name for a
// folder. The ## prefix keeps the rotating copies grouped together and
// apart from the stable latest file.
func TimestampedName(folder string, now time.Time) string {
	return fmt.Sprintf("##%s-%s.xlsx", SafeFileName(folder), now.Format("20060102_150405"))
}

// LatestName returns the stable workbook file name cross-links point
// at.
func LatestName(folder string) string {
	return SafeFileName(folder) + ".xlsx"
}

// WriteTimestamped writes a folder's workbook under its timestamped
// name and returns the full path.
func WriteTimestamped(dir, folder string, now time.Time, data []byte) (string, error) {
	path := filepath.Join(dir, TimestampedName(folder, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Rotate deletes a folder's oldest timestamped workbooks until at most
// keep remain. It returns the number of files removed.
func Rotate(dir, folder string, keep int) (int, error) {
	if keep < 1 {
		keep = DefaultKeepWorkbooks
	}
	matches, err := filepath.Glob(filepath.Join(dir, "##"+SafeFileName(folder)+"-*.xlsx"))
	if err != nil {
		return 0, err
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	files := make([]candidate, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, candidate{path: path, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	removed := 0
	for len(files)-removed > keep {
		if err := os.Remove(files[removed].path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CopyLatest overwrites the folder's stable workbook with the current
// data and returns the full path.
func CopyLatest(dir, folder string, data []byte) (string, error) {
	path := filepath.Join(dir, LatestName(folder))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
