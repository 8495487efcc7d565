package workbook

import (
	"regexp"
	"strings"
)

var (
	forbiddenFileChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	spaceRuns           = regexp.MustCompile(`\s+`)
	forbiddenSheetChars = regexp.MustCompile(`[\]\[:*?/\\]`)
)

// SafeFileName sanitizes a workbook file name for Windows and macOS
// shares.
func SafeFileName(name string) string {
	cleaned := forbiddenFileChars.ReplaceAllString(name, "_")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimRight(cleaned, " .")
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}

// SafeSheetName sanitizes a sheet name to Excel's rules: at most 31
// characters, no []:*?/\ and no surrounding apostrophes.
func SafeSheetName(name string) string {
	if name == "" {
		name = "Sheet"
	}
	cleaned := forbiddenSheetChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "'")
	runes := []rune(cleaned)
	if len(runes) > 31 {
		return string(runes[:31])
	}
	return cleaned
}
