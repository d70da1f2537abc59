package verify

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/log"
)

// defaultPlaceholderPatterns flag unfinished production code. Configured
// extras are compiled on top of these, never instead of them.
var defaultPlaceholderPatterns = []string{
	`\bTODO\b`,
	`\bFIXME\b`,
	`\bHACK\b`,
	`\bXXX\b`,
	`\bNOTIMPLEMENTED\b`,
	`\bNotImplementedError\b`,
	`\bmock_\w+`,
	`\bstub_\w+`,
	`\bPLACEHOLDER\b`,
	`MOCK_\w+`,
	`return None  # (?:implement|TODO)`,
	`raise NotImplementedError`,
	`pass  # (?:implement|TODO|stub)`,
}

// alwaysExclude cannot be overridden: test code legitimately contains the
// patterns above.
var alwaysExclude = []string{
	"tests/",
	"__mocks__/",
	`(?:^|/)test_[^/]+\.py$`,
	`.*\.test\.py$`,
	`.*\.spec\.py$`,
	`.*\.test\.ts$`,
	`.*\.spec\.ts$`,
	`.*\.test\.js$`,
	`.*\.spec\.js$`,
	`.*\.test\.tsx$`,
	`.*\.spec\.tsx$`,
	`.*_test\.go$`,
}

// contextRadius is the number of surrounding lines captured per violation.
const contextRadius = 2

// PlaceholderScanner scans production files for forbidden patterns.
type PlaceholderScanner struct {
	patterns []*regexp.Regexp
	sources  []string
	excludes []string
}

// NewPlaceholderScanner merges the built-in catalogue with the configured
// extras. Invalid configured patterns are dropped with a warning.
func NewPlaceholderScanner(cfg config.Placeholder) *PlaceholderScanner {
	s := &PlaceholderScanner{
		excludes: append(append([]string{}, alwaysExclude...), cfg.ExcludePaths...),
	}
	for _, p := range append(append([]string{}, defaultPlaceholderPatterns...), cfg.Patterns...) {
		re, err := regexp.Compile(p)
		if err != nil {
			log.DefaultLogger().Warn("dropping invalid placeholder pattern", "pattern", p, "error", err)
			continue
		}
		s.patterns = append(s.patterns, re)
		s.sources = append(s.sources, p)
	}
	return s
}

// Scan checks the given files. Only listed files are read; excluded or
// unreadable files are skipped. One violation per line, first pattern wins.
func (s *PlaceholderScanner) Scan(files []string) []PlaceholderViolation {
	var violations []PlaceholderViolation

	for _, file := range files {
		if s.IsExcluded(file) {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			for pi, re := range s.patterns {
				m := re.FindString(line)
				if m == "" {
					continue
				}
				start := max(0, i-contextRadius)
				end := min(len(lines), i+contextRadius+1)
				violations = append(violations, PlaceholderViolation{
					File:    file,
					Line:    i + 1,
					Pattern: s.sources[pi],
					Text:    m,
					Context: lines[start:end],
				})
				break
			}
		}
	}

	return violations
}

// IsExcluded reports whether a path is skipped during scanning. Directory
// prefixes ("tests/"), regex patterns, and plain globs are all honored.
func (s *PlaceholderScanner) IsExcluded(file string) bool {
	p := filepath.ToSlash(file)

	for _, excl := range s.excludes {
		if strings.HasSuffix(excl, "/") {
			if strings.HasPrefix(p, excl) || strings.Contains(p, "/"+excl) {
				return true
			}
			continue
		}

		if strings.HasPrefix(excl, ".*") || strings.ContainsAny(excl, `$^+?{}[]()\`) {
			if re, err := regexp.Compile(excl); err == nil && re.MatchString(p) {
				return true
			}
			continue
		}

		if ok, _ := path.Match(excl, p); ok {
			return true
		}
		if ok, _ := path.Match(excl, path.Base(p)); ok {
			return true
		}
	}

	return false
}
