package wait

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCondition_ImmediateTrue(t *testing.T) {
	start := time.Now()
	ok := ForCondition(func() bool { return true }, time.Second)
	assert.True(t, ok)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestForCondition_BecomesTrue(t *testing.T) {
	calls := 0
	ok := ForCondition(func() bool {
		calls++
		return calls >= 3
	}, 5*time.Second)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestForCondition_Timeout(t *testing.T) {
	ok := ForCondition(func() bool { return false }, 300*time.Millisecond)
	assert.False(t, ok)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestForNewFile_DetectsNewest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xlsx")
	writeFile(t, dir, "b.xlsx")

	before := FileSet{"a.xlsx": {}, "b.xlsx": {}}

	go func() {
		time.Sleep(200 * time.Millisecond)
		writeFile(t, dir, "c.xlsx")
	}()

	found := ForNewFile(dir, before, 5*time.Second)
	assert.Equal(t, filepath.Join(dir, "c.xlsx"), found)
}

func TestForNewFile_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xlsx")

	before := FileSet{"a.xlsx": {}}
	found := ForNewFile(dir, before, 600*time.Millisecond)
	assert.Equal(t, "", found)
}

func TestForNewFile_IgnoresPartialDownloads(t *testing.T) {
	dir := t.TempDir()
	before := FileSet{}

	writeFile(t, dir, "report.xlsx.crdownload")
	writeFile(t, dir, "scratch.tmp")

	found := ForNewFile(dir, before, 600*time.Millisecond)
	assert.Equal(t, "", found)
}

func TestForNewFile_IgnoresPreexisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.xlsx")
	before := FileSet{"old.xlsx": {}}

	writeFile(t, dir, "new.xlsx")

	found := ForNewFile(dir, before, time.Second)
	assert.Equal(t, filepath.Join(dir, "new.xlsx"), found)
}

func TestIsPartialDownload(t *testing.T) {
	assert.True(t, IsPartialDownload("file.xlsx.crdownload"))
	assert.True(t, IsPartialDownload("FILE.TMP"))
	assert.True(t, IsPartialDownload("file.part"))
	assert.False(t, IsPartialDownload("file.xlsx"))
}
