package task

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/log"
)

var (
	taskLineRe = regexp.MustCompile(`^- \[( |x)\] (.+)$`)
	rulesRe    = regexp.MustCompile(`^\s*- \*\*Rules\*\*:\s*(.+)$`)

	// Backtick-quoted paths win; the bare pattern is a deliberately loose
	// path-like heuristic carried over from the source tool.
	backtickFileRe = regexp.MustCompile("`([^`]+\\.[A-Za-z]+)`")
	bareFileRe     = regexp.MustCompile(`\b([\w/.-]+\.[A-Za-z]{2,4})\b`)

	depRe = regexp.MustCompile(`(?i)\b(?:after|depends on)\s+T(\d{3})\b`)
)

// ParseFile reads and parses the task list at path. A missing or unreadable
// file is a fatal planning error.
func ParseFile(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewTaskListNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeTaskListUnreadable,
			fmt.Sprintf("cannot read task list: %s", path), err)
	}

	return Parse(string(data)), nil
}

// Parse parses the markdown checklist content into a List. Malformed
// individual entries are skipped with a warning; they never abort the parse.
func Parse(content string) *List {
	list := &List{FileIndex: make(map[string][]string)}

	var block []string
	seq := 1

	flush := func() {
		if len(block) == 0 {
			return
		}
		if t, ok := parseBlock(block, seq); ok {
			list.add(t)
			seq++
		}
		block = nil
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case taskLineRe.MatchString(line):
			flush()
			if isVerifierLine(line) {
				// Verification lines terminate the preceding block only.
				continue
			}
			block = []string{line}
		case rulesRe.MatchString(line) && len(block) > 0:
			block = append(block, line)
		case strings.TrimSpace(line) == "" && len(block) > 0:
			flush()
		}
		// Anything else (cascade annotations, headings, prose) is ignored.
	}
	flush()

	return list
}

func (l *List) add(t Task) {
	l.Tasks = append(l.Tasks, t)
	for _, f := range t.FileLocks {
		l.FileIndex[f] = append(l.FileIndex[f], t.ID)
	}
}

// isVerifierLine reports whether a task line's text begins with the
// verification-task prefix.
func isVerifierLine(line string) bool {
	m := taskLineRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(m[2]), VerifyPrefix)
}

func parseBlock(lines []string, seq int) (Task, bool) {
	m := taskLineRe.FindStringSubmatch(lines[0])
	if m == nil {
		return Task{}, false
	}

	instruction := strings.TrimSpace(m[2])
	if instruction == "" {
		log.DefaultLogger().Warn("skipping malformed task entry", "line", lines[0])
		return Task{}, false
	}

	t := Task{
		ID:          fmt.Sprintf("T%03d", seq),
		Instruction: instruction,
		Role:        RoleDeveloper,
		FileLocks:   extractFileRefs(instruction),
		DependsOn:   extractDeps(instruction),
		Completed:   m[1] == "x",
	}

	for _, line := range lines[1:] {
		if rm := rulesRe.FindStringSubmatch(line); rm != nil {
			for _, r := range strings.Split(rm[1], ",") {
				if r = strings.TrimSpace(r); r != "" {
					t.Rules = append(t.Rules, r)
				}
			}
		}
	}

	return t, true
}

// extractFileRefs pulls file paths out of the instruction text, backtick
// quoted first, then the bare path-like pattern. First-seen order is kept so
// wave output stays deterministic.
func extractFileRefs(instruction string) []string {
	seen := make(map[string]bool)
	var out []string

	appendMatch := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, m := range backtickFileRe.FindAllStringSubmatch(instruction, -1) {
		appendMatch(m[1])
	}
	for _, m := range bareFileRe.FindAllStringSubmatch(instruction, -1) {
		appendMatch(m[1])
	}

	return out
}

func extractDeps(instruction string) []string {
	var out []string
	for _, m := range depRe.FindAllStringSubmatch(instruction, -1) {
		out = append(out, "T"+m[1])
	}
	return out
}
