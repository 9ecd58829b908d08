package runner

import (
	"bufio"
	"io"
	"strings"
)

// ReadAreas reads one area per line. Blank lines and lines starting with '#'
// are skipped, and repeated areas keep their first position.
func ReadAreas(r io.Reader) ([]string, error) {
	var areas []string

	seen := map[string]bool{}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := strings.ToLower(line)
		if seen[key] {
			continue
		}

		seen[key] = true

		areas = append(areas, line)
	}

	return areas, sc.Err()
}

// MergeAreas appends extra to areas, skipping case-insensitive duplicates.
func MergeAreas(areas, extra []string) []string {
	seen := make(map[string]bool, len(areas))

	ans := make([]string, 0, len(areas)+len(extra))

	for _, a := range append(append([]string(nil), areas...), extra...) {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" || seen[key] {
			continue
		}

		seen[key] = true

		ans = append(ans, strings.TrimSpace(a))
	}

	return ans
}
