package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns text in the canonical form used for snapshots and
// fingerprints. It applies NFKC, so that full-width digits, ligatures and
// non-breaking spaces compare equal to their plain forms, folds horizontal
// whitespace inside each line, and drops blank lines.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// Truncate cuts s to at most n runes. Multi-byte characters such as the
// rupee sign are never split.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
