package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavectl/wavectl/internal/errors"
)

// ListFile is the single owning writer for the task list on disk. Every
// component that mutates the list (the verification injector, the cascade
// annotator) goes through it. Writes are append-or-insert only: existing
// lines are never removed or reordered, and always atomic: content is
// written to a sibling temporary path and renamed over the original.
type ListFile struct {
	Path string
}

// NewListFile returns a ListFile for the given path.
func NewListFile(path string) *ListFile {
	return &ListFile{Path: path}
}

// Read returns the current content of the task list.
func (f *ListFile) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewTaskListNotFoundError(f.Path)
		}
		return "", errors.Wrap(errors.ErrCodeTaskListUnreadable,
			fmt.Sprintf("cannot read task list: %s", f.Path), err)
	}
	return string(data), nil
}

// AppendUnique appends each line that is not already present, preserving all
// existing content. Returns the number of lines actually added. Re-running
// with the same lines is a no-op.
func (f *ListFile) AppendUnique(lines []string) (int, error) {
	content, err := f.Read()
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool)
	for _, l := range strings.Split(content, "\n") {
		existing[strings.TrimRight(l, " \t")] = true
	}

	var added []string
	for _, l := range lines {
		if !existing[strings.TrimRight(l, " \t")] {
			added = append(added, l)
			existing[strings.TrimRight(l, " \t")] = true
		}
	}

	if len(added) == 0 {
		return 0, nil
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(added, "\n") + "\n"

	if err := f.writeAtomic(content); err != nil {
		return 0, err
	}
	return len(added), nil
}

// AnnotateAfter inserts block immediately after the first pending task line
// containing taskID. If any line of the task's existing annotation already
// contains marker, nothing is written (idempotent). Returns true when the
// annotation was applied.
func (f *ListFile) AnnotateAfter(taskID, marker, block string) (bool, error) {
	content, err := f.Read()
	if err != nil {
		return false, err
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "- [ ]") || !strings.Contains(line, taskID) {
			continue
		}

		// Scan the annotation region below the task line for the marker.
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(lines[j], "- [") || strings.TrimSpace(lines[j]) == "" {
				break
			}
			if strings.Contains(lines[j], marker) {
				return false, nil
			}
		}

		updated := make([]string, 0, len(lines)+1)
		updated = append(updated, lines[:i+1]...)
		updated = append(updated, block)
		updated = append(updated, lines[i+1:]...)

		if err := f.writeAtomic(strings.Join(updated, "\n")); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func (f *ListFile) writeAtomic(content string) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeTaskListWriteFailed,
			fmt.Sprintf("cannot create temp file next to %s", f.Path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeTaskListWriteFailed,
			fmt.Sprintf("cannot write temp file for %s", f.Path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeTaskListWriteFailed,
			fmt.Sprintf("cannot close temp file for %s", f.Path), err)
	}

	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeTaskListWriteFailed,
			fmt.Sprintf("cannot replace %s", f.Path), err)
	}
	return nil
}
