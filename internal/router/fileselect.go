package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// errInvalidSmartsheetURL is returned by URLPaste when the given URL
// doesn't match any known Smartsheet URL shape.
func errInvalidSmartsheetURL(url string) error {
	return fmt.Errorf("not a recognized smartsheet url: %q", url)
}

// ParseSelection implements spec §4.9.2's file-selection phrase parsing:
// "analyze all", comma-separated numeric indices, numeric ranges, and
// filename fragments (substring or glob match), in any combination
// separated by commas. Indices are 1-based in the input text and returned
// 0-based, matching availableFiles's indexing.
func ParseSelection(text string, availableFiles []string) []int {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "analyze all" || trimmed == "all" {
		out := make([]int, len(availableFiles))
		for i := range availableFiles {
			out[i] = i
		}
		return out
	}

	seen := map[int]bool{}
	var indices []int
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}

	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if lo, hi, ok := parseRange(token); ok {
			for i := lo; i <= hi; i++ {
				if idx := i - 1; idx >= 0 && idx < len(availableFiles) {
					add(idx)
				}
			}
			continue
		}

		if n, err := strconv.Atoi(token); err == nil {
			if idx := n - 1; idx >= 0 && idx < len(availableFiles) {
				add(idx)
			}
			continue
		}

		addMatchingFilenames(token, availableFiles, add)
	}

	return indices
}

// parseRange parses "2-4" into (2, 4, true); anything else returns ok=false.
func parseRange(token string) (lo, hi int, ok bool) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, errLo := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, errHi := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errLo != nil || errHi != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// addMatchingFilenames matches token against availableFiles as a glob
// pattern first (so "*.pdf" works), falling back to a case-insensitive
// substring match for plain filename fragments.
func addMatchingFilenames(token string, availableFiles []string, add func(int)) {
	lowerToken := strings.ToLower(token)
	for i, name := range availableFiles {
		lowerName := strings.ToLower(name)
		if matched, _ := doublestar.Match(lowerToken, lowerName); matched {
			add(i)
			continue
		}
		if strings.Contains(lowerName, lowerToken) {
			add(i)
		}
	}
}
