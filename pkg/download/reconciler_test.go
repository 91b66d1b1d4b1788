package download

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gianky00/isab-timesheet/pkg/wait"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestSnapshot_FiltersByPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xlsx")
	writeFile(t, dir, "b.XLSX")
	writeFile(t, dir, "notes.txt")

	r := &Reconciler{Dir: dir, Pattern: "*.xlsx"}
	set, err := r.Snapshot()
	require.NoError(t, err)

	assert.True(t, set.Contains("a.xlsx"))
	assert.True(t, set.Contains("b.XLSX"))
	assert.False(t, set.Contains("notes.txt"))
}

func TestSnapshot_EmptyPatternMatchesAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xlsx")
	writeFile(t, dir, "notes.txt")

	r := &Reconciler{Dir: dir}
	set, err := r.Snapshot()
	require.NoError(t, err)
	assert.Len(t, set, 2)
}

func TestTriggerAndWait_FindsNewFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xlsx")
	writeFile(t, dir, "b.xlsx")

	r := &Reconciler{Dir: dir, Pattern: "*.xlsx", Timeout: 5 * time.Second}
	before, err := r.Snapshot()
	require.NoError(t, err)

	record, err := r.TriggerAndWait(func() error {
		go func() {
			time.Sleep(200 * time.Millisecond)
			writeFile(t, dir, "c.xlsx")
		}()
		return nil
	}, before)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.xlsx"), record.DiscoveredPath)
}

func TestTriggerAndWait_Timeout(t *testing.T) {
	dir := t.TempDir()
	r := &Reconciler{Dir: dir, Timeout: 600 * time.Millisecond}

	before := wait.FileSet{}
	_, err := r.TriggerAndWait(func() error { return nil }, before)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTriggerAndWait_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	// Fresh but outside the pattern: never a reconciliation candidate.
	writeFile(t, dir, "report.pdf")

	r := &Reconciler{Dir: dir, Pattern: "*.xlsx", Timeout: 600 * time.Millisecond}
	before, err := r.Snapshot()
	require.NoError(t, err)
	require.False(t, before.Contains("report.pdf"))

	_, err = r.TriggerAndWait(func() error { return nil }, before)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTriggerAndWait_SkipsNonMatchingForLaterMatch(t *testing.T) {
	dir := t.TempDir()

	r := &Reconciler{Dir: dir, Pattern: "*.xlsx", Timeout: 5 * time.Second}
	before, err := r.Snapshot()
	require.NoError(t, err)

	record, err := r.TriggerAndWait(func() error {
		// Another process drops an unrelated file mid-wait; the export
		// lands afterwards.
		writeFile(t, dir, "unrelated.txt")
		go func() {
			time.Sleep(300 * time.Millisecond)
			writeFile(t, dir, "export.xlsx")
		}()
		return nil
	}, before)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export.xlsx"), record.DiscoveredPath)
}

func TestTriggerAndWait_FreshnessSkipsStaleFiles(t *testing.T) {
	dir := t.TempDir()

	// A leftover from another session: on disk, not in the snapshot,
	// but far older than the trigger.
	stale := writeFile(t, dir, "vecchio.xlsx")
	old := time.Now().Add(-1 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	r := &Reconciler{Dir: dir, Timeout: 5 * time.Second, Freshness: 10 * time.Minute}

	record, err := r.TriggerAndWait(func() error {
		go func() {
			time.Sleep(200 * time.Millisecond)
			writeFile(t, dir, "nuovo.xlsx")
		}()
		return nil
	}, wait.FileSet{})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nuovo.xlsx"), record.DiscoveredPath)
}

func TestTriggerAndWait_OnlyStaleFilesTimesOut(t *testing.T) {
	dir := t.TempDir()
	stale := writeFile(t, dir, "vecchio.xlsx")
	old := time.Now().Add(-1 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	r := &Reconciler{Dir: dir, Timeout: 600 * time.Millisecond, Freshness: 10 * time.Minute}
	_, err := r.TriggerAndWait(func() error { return nil }, wait.FileSet{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTriggerAndWait_ActionError(t *testing.T) {
	dir := t.TempDir()
	r := &Reconciler{Dir: dir, Timeout: time.Second}

	_, err := r.TriggerAndWait(func() error { return os.ErrPermission }, wait.FileSet{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestTargetName(t *testing.T) {
	assert.Equal(t, "8500123.xlsx", TargetName("8500123", "", ".xlsx"))
	assert.Equal(t, "8500123-10.xlsx", TargetName("8500123", "10", ".xlsx"))
}

func TestResolveTargetName_NoCollision(t *testing.T) {
	dir := t.TempDir()
	got := ResolveTargetName("8500123.xlsx", dir)
	assert.Equal(t, filepath.Join(dir, "8500123.xlsx"), got)
}

func TestResolveTargetName_SuccessiveCollisionsDistinct(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "8500123.xlsx")

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		resolved := ResolveTargetName("8500123.xlsx", dir)
		assert.NotEqual(t, filepath.Join(dir, "8500123.xlsx"), resolved)
		assert.False(t, seen[resolved], "resolved name %q repeated", resolved)
		seen[resolved] = true

		// Occupy the resolved name so the next call must pick another.
		require.NoError(t, os.WriteFile(resolved, []byte("x"), 0644))
	}
	assert.Len(t, seen, 3)
}

func TestReconcile_MovesToCanonicalName(t *testing.T) {
	dir := t.TempDir()
	temp := writeFile(t, dir, "export (1).xlsx")

	r := &Reconciler{Dir: dir}
	record, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "8500123.xlsx"), record.FinalPath)
	assert.FileExists(t, record.FinalPath)
	assert.NoFileExists(t, temp)
}

func TestReconcile_SecondaryID(t *testing.T) {
	dir := t.TempDir()
	temp := writeFile(t, dir, "export.xlsx")

	r := &Reconciler{Dir: dir}
	record, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "10")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "8500123-10.xlsx"), record.FinalPath)
}

func TestReconcile_CollisionNonInteractive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "8500123.xlsx")
	temp := writeFile(t, dir, "export.xlsx")

	r := &Reconciler{Dir: dir}
	record, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "")
	require.NoError(t, err)

	// Never silently overwrites.
	assert.NotEqual(t, filepath.Join(dir, "8500123.xlsx"), record.FinalPath)
	assert.FileExists(t, filepath.Join(dir, "8500123.xlsx"))
	assert.FileExists(t, record.FinalPath)
}

func TestReconcile_InteractiveRename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "8500123.xlsx")
	temp := writeFile(t, dir, "export.xlsx")

	var prompt string
	r := &Reconciler{
		Dir: dir,
		RequestInput: func(p string) string {
			prompt = p
			return "8500123-bis"
		},
	}

	record, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "")
	require.NoError(t, err)
	assert.Contains(t, prompt, "8500123.xlsx")
	assert.Equal(t, filepath.Join(dir, "8500123-bis.xlsx"), record.FinalPath)
	assert.FileExists(t, record.FinalPath)
}

func TestReconcile_InteractiveOverwriteConfirmed(t *testing.T) {
	dir := t.TempDir()
	occupied := writeFile(t, dir, "8500123.xlsx")
	temp := filepath.Join(dir, "export.xlsx")
	require.NoError(t, os.WriteFile(temp, []byte("fresh"), 0644))

	r := &Reconciler{
		Dir:          dir,
		RequestInput: func(string) string { return "8500123.xlsx" },
	}

	record, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "")
	require.NoError(t, err)
	assert.Equal(t, occupied, record.FinalPath)

	content, err := os.ReadFile(occupied)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(content))
}

func TestReconcile_InteractiveCancelDiscards(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "8500123.xlsx")
	temp := writeFile(t, dir, "export.xlsx")

	r := &Reconciler{
		Dir:          dir,
		RequestInput: func(string) string { return "" },
	}

	_, err := r.Reconcile(Record{DiscoveredPath: temp}, "8500123", "")
	assert.ErrorIs(t, err, ErrDiscarded)
	assert.NoFileExists(t, temp)
	assert.FileExists(t, filepath.Join(dir, "8500123.xlsx"))
}
