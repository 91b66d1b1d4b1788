package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// lockStaleAfter is how old a lock file may be before it is considered
// left over from a crashed session and reclaimed.
const lockStaleAfter = 12 * time.Hour

// profileLock is the exclusive guard on the persistent profile
// directory. No two sessions may share one profile concurrently; a held
// lock makes initialization fail fast with ErrProfileLocked.
type profileLock struct {
	path string
}

func lockPath(profileDir string) string {
	return profileDir + ".lock"
}

// acquireProfileLock takes the exclusive lock next to profileDir,
// creating the profile directory if needed.
func acquireProfileLock(profileDir string) (*profileLock, error) {
	if err := os.MkdirAll(profileDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	path := lockPath(profileDir)
	if info, err := os.Stat(path); err == nil {
		if time.Since(info.ModTime()) < lockStaleAfter {
			return nil, fmt.Errorf("%w (lock: %s)", ErrProfileLocked, path)
		}
		// Stale lock from a crashed session.
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to reclaim stale profile lock: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (lock: %s)", ErrProfileLocked, path)
		}
		return nil, fmt.Errorf("failed to create profile lock: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write profile lock: %w", err)
	}

	return &profileLock{path: path}, nil
}

// release removes the lock file. Idempotent.
func (l *profileLock) release() {
	if l == nil {
		return
	}
	_ = os.Remove(l.path)
}

// cacheSubdirs are the browser cache locations inside a profile that a
// corrupted download can leave unusable. Clearing them forces a clean
// re-fetch without losing cookies or site data.
var cacheSubdirs = []string{
	filepath.Join("Default", "Cache"),
	filepath.Join("Default", "Code Cache"),
	filepath.Join("Default", "GPUCache"),
	"GrShaderCache",
	"ShaderCache",
	"GraphiteDawnCache",
}

// resetProfileCache clears the cache subdirectories of profileDir. Used
// once when browser launch fails on a corrupted cached binary.
func resetProfileCache(profileDir string) error {
	var firstErr error
	for _, sub := range cacheSubdirs {
		path := filepath.Join(profileDir, sub)
		if err := os.RemoveAll(path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to clear %s: %w", path, err)
		}
	}
	return firstErr
}
