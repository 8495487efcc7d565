package images

import (
	"regexp"
	"strings"
)

var unsafePathChars = regexp.MustCompile(`[\\/|:*?"<>]`)

// SafeName sanitizes a label for use as a path segment. Empty labels
// map to "unknown" so directory levels never collapse.
func SafeName(s string) string {
	cleaned := strings.TrimSpace(unsafePathChars.ReplaceAllString(s, "_"))
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}
