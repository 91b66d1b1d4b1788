// Package wait provides bounded polling helpers used by the session
// controller, the navigator and the download reconciler. All waits are
// blocking-with-timeout on the calling goroutine; none spawn background
// work.
package wait

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// PollInterval is the predicate re-check interval for ForCondition.
	PollInterval = 250 * time.Millisecond

	// FilePollInterval is the directory re-scan interval for ForNewFile.
	FilePollInterval = 500 * time.Millisecond

	// DownloadTimeout bounds the wait for a triggered download to land.
	DownloadTimeout = 25 * time.Second

	// OverlayTimeout bounds the wait for the loading mask to clear.
	OverlayTimeout = 45 * time.Second
)

// partialSuffixes are in-progress download artifacts that must never be
// reconciled as completed files.
var partialSuffixes = []string{".crdownload", ".tmp", ".part"}

// ForCondition polls predicate at PollInterval until it returns true or
// the timeout elapses. Returns false on timeout; never panics or errors.
func ForCondition(predicate func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if predicate() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(PollInterval)
	}
}

// FileSet is a snapshot of file names present in a directory at a point
// in time, keyed by base name.
type FileSet map[string]struct{}

// Contains reports whether name was present in the snapshot.
func (s FileSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// IsPartialDownload reports whether name carries an in-progress
// download suffix.
func IsPartialDownload(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// ForNewFile polls dir every FilePollInterval until a file appears that
// was not in the before snapshot, or the timeout elapses. When several
// new files exist the newest by modification time wins. Partial
// downloads are ignored. Returns the full path of the new file, or ""
// on timeout.
func ForNewFile(dir string, before FileSet, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		if newest := newestUnseen(dir, before); newest != "" {
			return newest
		}
		if time.Now().After(deadline) {
			return ""
		}
		time.Sleep(FilePollInterval)
	}
}

func newestUnseen(dir string, before FileSet) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if before.Contains(name) || IsPartialDownload(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}

	if newest == "" {
		return ""
	}
	return filepath.Join(dir, newest)
}
