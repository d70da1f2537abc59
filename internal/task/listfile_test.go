package task

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavectl/wavectl/internal/errors"
)

func newTestListFile(t *testing.T, content string) *ListFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return NewListFile(path)
}

func TestReadMissingFile(t *testing.T) {
	f := NewListFile(filepath.Join(t.TempDir(), "absent.md"))

	_, err := f.Read()
	require.Error(t, err)
	var werr *errors.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, errors.ErrCodeTaskListNotFound, werr.Code)
}

func TestAppendUniqueAddsNewLines(t *testing.T) {
	f := newTestListFile(t, "- [ ] T001 Fix the parser\n")

	added, err := f.AppendUnique([]string{"- [ ] VERIFY-T001 Run verification"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	content, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, "- [ ] T001 Fix the parser\n- [ ] VERIFY-T001 Run verification\n", content)
}

func TestAppendUniqueIsIdempotent(t *testing.T) {
	f := newTestListFile(t, "- [ ] T001 Fix the parser\n")
	lines := []string{"- [ ] VERIFY-T001 Run verification"}

	_, err := f.AppendUnique(lines)
	require.NoError(t, err)

	added, err := f.AppendUnique(lines)
	require.NoError(t, err)
	assert.Zero(t, added)

	content, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(content, "VERIFY-T001"))
}

func TestAppendUniqueIgnoresTrailingWhitespaceDifferences(t *testing.T) {
	f := newTestListFile(t, "- [ ] T001 Fix the parser  \n")

	added, err := f.AppendUnique([]string{"- [ ] T001 Fix the parser"})
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestAppendUniqueRepairsMissingFinalNewline(t *testing.T) {
	f := newTestListFile(t, "- [ ] T001 Fix the parser")

	_, err := f.AppendUnique([]string{"- [ ] T002 Add tests"})
	require.NoError(t, err)

	content, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, "- [ ] T001 Fix the parser\n- [ ] T002 Add tests\n", content)
}

func TestAnnotateAfterInsertsBelowPendingTask(t *testing.T) {
	f := newTestListFile(t, "- [x] T001 Done work\n- [ ] T002 Pending work\n- [ ] T003 Later work\n")

	applied, err := f.AnnotateAfter("T002", "Verification VERIFY-T001 modified",
		"  > **CASCADE WARNING**: Verification VERIFY-T001 modified: `src/auth.py`")
	require.NoError(t, err)
	assert.True(t, applied)

	content, err := f.Read()
	require.NoError(t, err)
	lines := strings.Split(content, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[1], "T002")
	assert.Contains(t, lines[2], "CASCADE WARNING")
	assert.Contains(t, lines[3], "T003")
}

func TestAnnotateAfterSkipsCompletedTasks(t *testing.T) {
	f := newTestListFile(t, "- [x] T001 Done work\n")

	applied, err := f.AnnotateAfter("T001", "marker", "  > annotation")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestAnnotateAfterIsIdempotentPerMarker(t *testing.T) {
	f := newTestListFile(t, "- [ ] T002 Pending work\n")
	marker := "Verification VERIFY-T001 modified"
	block := "  > **CASCADE WARNING**: " + marker + ": `src/auth.py`"

	applied, err := f.AnnotateAfter("T002", marker, block)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.AnnotateAfter("T002", marker, block)
	require.NoError(t, err)
	assert.False(t, applied)

	content, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(content, "CASCADE WARNING"))
}

func TestAnnotateAfterDistinctMarkersStack(t *testing.T) {
	f := newTestListFile(t, "- [ ] T002 Pending work\n")

	applied, err := f.AnnotateAfter("T002", "Verification VERIFY-T001 modified",
		"  > **CASCADE WARNING**: Verification VERIFY-T001 modified: `a.py`")
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.AnnotateAfter("T002", "Verification VERIFY-T003 modified",
		"  > **CASCADE WARNING**: Verification VERIFY-T003 modified: `b.py`")
	require.NoError(t, err)
	assert.True(t, applied)

	content, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(content, "CASCADE WARNING"))
}

func TestAnnotateAfterUnknownTask(t *testing.T) {
	f := newTestListFile(t, "- [ ] T002 Pending work\n")

	applied, err := f.AnnotateAfter("T404", "marker", "  > annotation")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	f := newTestListFile(t, "- [ ] T001 Fix the parser\n")

	_, err := f.AppendUnique([]string{"- [ ] T002 Add tests"})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(f.Path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
