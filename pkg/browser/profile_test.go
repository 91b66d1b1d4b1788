package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireProfileLock(t *testing.T) {
	profileDir := filepath.Join(t.TempDir(), "chrome_profile")

	lock, err := acquireProfileLock(profileDir)
	require.NoError(t, err)
	defer lock.release()

	assert.DirExists(t, profileDir)
	assert.FileExists(t, lockPath(profileDir))
}

func TestAcquireProfileLock_FailsFastWhenHeld(t *testing.T) {
	profileDir := filepath.Join(t.TempDir(), "chrome_profile")

	first, err := acquireProfileLock(profileDir)
	require.NoError(t, err)
	defer first.release()

	_, err = acquireProfileLock(profileDir)
	assert.ErrorIs(t, err, ErrProfileLocked)
}

func TestAcquireProfileLock_ReleaseAllowsReacquire(t *testing.T) {
	profileDir := filepath.Join(t.TempDir(), "chrome_profile")

	first, err := acquireProfileLock(profileDir)
	require.NoError(t, err)
	first.release()

	second, err := acquireProfileLock(profileDir)
	require.NoError(t, err)
	second.release()
}

func TestAcquireProfileLock_ReclaimsStaleLock(t *testing.T) {
	profileDir := filepath.Join(t.TempDir(), "chrome_profile")
	require.NoError(t, os.MkdirAll(profileDir, 0750))

	stale := lockPath(profileDir)
	require.NoError(t, os.WriteFile(stale, []byte("12345"), 0600))
	old := time.Now().Add(-2 * lockStaleAfter)
	require.NoError(t, os.Chtimes(stale, old, old))

	lock, err := acquireProfileLock(profileDir)
	require.NoError(t, err)
	lock.release()
}

func TestProfileLock_ReleaseIdempotent(t *testing.T) {
	profileDir := filepath.Join(t.TempDir(), "chrome_profile")

	lock, err := acquireProfileLock(profileDir)
	require.NoError(t, err)

	lock.release()
	assert.NotPanics(t, func() { lock.release() })

	var nilLock *profileLock
	assert.NotPanics(t, func() { nilLock.release() })
}

func TestResetProfileCache(t *testing.T) {
	profileDir := t.TempDir()

	cacheDir := filepath.Join(profileDir, "Default", "Cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "data_0"), []byte("x"), 0644))

	cookies := filepath.Join(profileDir, "Default", "Cookies")
	require.NoError(t, os.WriteFile(cookies, []byte("keep"), 0644))

	require.NoError(t, resetProfileCache(profileDir))

	assert.NoDirExists(t, cacheDir)
	// Site data survives a cache reset.
	assert.FileExists(t, cookies)
}
