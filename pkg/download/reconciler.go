// Package download correlates a triggered export with the file that
// lands on disk. The portal gives no completion signal, so the only
// reliable detection is a directory diff: snapshot before the trigger,
// poll until a new file appears, then rename it into place.
package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// ErrTimeout is returned when no new file appears within the window.
var ErrTimeout = errors.New("download timeout: no new file appeared")

// ErrDiscarded is returned when interactive collision resolution was
// cancelled and the temp file was discarded.
var ErrDiscarded = errors.New("download discarded: collision not resolved")

// Record tracks a download from discovery to its reconciled location.
type Record struct {
	// DiscoveredPath is where the browser dropped the file.
	DiscoveredPath string

	// FinalPath is the reconciled destination, set by Reconcile.
	FinalPath string
}

// Reconciler matches triggered downloads to files in one directory.
type Reconciler struct {
	// Dir is the watched download directory. It is diffed, not locked;
	// other processes may write to it.
	Dir string

	// Pattern filters snapshot entries, e.g. "*.xlsx". Empty matches
	// every file.
	Pattern string

	// Timeout bounds the wait after a trigger. Zero means
	// wait.DownloadTimeout.
	Timeout time.Duration

	// Freshness, when positive, rejects candidate files whose
	// modification time predates the trigger by more than this window.
	// Shared download directories accumulate files from other sessions;
	// those must never be mistaken for the export just triggered.
	Freshness time.Duration

	// Log receives soft-failure notices. May be nil.
	Log func(string)

	// RequestInput, when set, enables interactive collision
	// resolution: it is called with a prompt and blocks until the
	// human answers. An empty answer means skip-and-discard.
	RequestInput func(prompt string) string
}

func (r *Reconciler) logf(format string, v ...interface{}) {
	if r.Log != nil {
		r.Log(fmt.Sprintf(format, v...))
	}
}

// matcher compiles the configured pattern; nil when no pattern is set.
func (r *Reconciler) matcher() (glob.Glob, error) {
	if r.Pattern == "" {
		return nil, nil
	}
	matcher, err := glob.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", r.Pattern, err)
	}
	return matcher, nil
}

// Snapshot captures the files currently in the directory that match
// the configured pattern.
func (r *Reconciler) Snapshot() (wait.FileSet, error) {
	matcher, err := r.matcher()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	set := make(wait.FileSet, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if matcher != nil && !matcher.Match(strings.ToLower(name)) {
			continue
		}
		set[name] = struct{}{}
	}
	return set, nil
}

// TriggerAndWait runs the download-triggering action and waits for a
// file absent from before to appear. When several files appear the
// newest by modification time wins. Returns ErrTimeout when nothing
// lands within the window.
func (r *Reconciler) TriggerAndWait(action func() error, before wait.FileSet) (Record, error) {
	matcher, err := r.matcher()
	if err != nil {
		return Record{}, err
	}

	start := time.Now()
	if err := action(); err != nil {
		return Record{}, fmt.Errorf("download trigger failed: %w", err)
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = wait.DownloadTimeout
	}
	deadline := start.Add(timeout)

	// Copy: stale candidates get added to the exclusion set so the next
	// scan skips past them, and the caller's snapshot stays untouched.
	seen := make(wait.FileSet, len(before))
	for name := range before {
		seen[name] = struct{}{}
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Record{}, ErrTimeout
		}

		path := wait.ForNewFile(r.Dir, seen, remaining)
		if path == "" {
			return Record{}, ErrTimeout
		}
		name := filepath.Base(path)

		// The diff must honor the same pattern as the snapshot: the
		// directory is shared, and a file another process drops there
		// is not the export just triggered.
		if matcher != nil && !matcher.Match(strings.ToLower(name)) {
			seen[name] = struct{}{}
			continue
		}

		if r.Freshness > 0 {
			if info, err := os.Stat(path); err != nil || info.ModTime().Before(start.Add(-r.Freshness)) {
				r.logf("File non recente ignorato: %s", name)
				seen[name] = struct{}{}
				continue
			}
		}
		return Record{DiscoveredPath: path}, nil
	}
}

// TargetName composes the canonical destination base name:
// <primary-id>[-<secondary-id>].<ext>.
func TargetName(primaryID, secondaryID, ext string) string {
	if secondaryID != "" {
		return primaryID + "-" + secondaryID + ext
	}
	return primaryID + ext
}

// ResolveTargetName returns a destination path for base inside dir that
// does not collide with an existing file. On collision a deterministic
// timestamp+counter suffix is appended; repeated collisions yield
// distinct names. It never silently selects an occupied name.
func ResolveTargetName(base, dir string) string {
	candidate := filepath.Join(dir, base)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := time.Now().Format("20060102-150405")

	for counter := 1; ; counter++ {
		name := fmt.Sprintf("%s-%s_%d%s", stem, stamp, counter, ext)
		candidate = filepath.Join(dir, name)
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Reconcile moves the discovered file to its canonical name inside the
// reconciler's directory. With RequestInput set, a collision blocks on
// the human: a non-empty answer replaces the base name (an answer equal
// to the colliding name confirms overwrite), an empty answer discards
// the temp file and returns ErrDiscarded. Without RequestInput the
// collision is resolved with a deterministic suffix.
func (r *Reconciler) Reconcile(record Record, primaryID, secondaryID string) (Record, error) {
	ext := filepath.Ext(record.DiscoveredPath)
	base := TargetName(primaryID, secondaryID, ext)
	target := filepath.Join(r.Dir, base)

	if exists(target) && !sameFile(target, record.DiscoveredPath) {
		if r.RequestInput != nil {
			resolved, err := r.resolveInteractively(record, base)
			if err != nil {
				return record, err
			}
			target = resolved
		} else {
			target = ResolveTargetName(base, r.Dir)
		}
	}

	if err := os.Rename(record.DiscoveredPath, target); err != nil {
		return record, fmt.Errorf("failed to move download into place: %w", err)
	}

	record.FinalPath = target
	return record, nil
}

func (r *Reconciler) resolveInteractively(record Record, base string) (string, error) {
	prompt := fmt.Sprintf("Il file %q esiste già. Nuovo nome (vuoto per saltare):", base)
	answer := strings.TrimSpace(r.RequestInput(prompt))

	if answer == "" {
		r.logf("Download scartato: %s", filepath.Base(record.DiscoveredPath))
		_ = os.Remove(record.DiscoveredPath)
		return "", ErrDiscarded
	}

	if filepath.Ext(answer) == "" {
		answer += filepath.Ext(base)
	}

	// Answering with the colliding name itself is the explicit
	// overwrite confirmation.
	if answer == base {
		return filepath.Join(r.Dir, base), nil
	}

	// A fresh name may itself collide; fall back to the deterministic
	// suffix rather than looping on the human.
	return ResolveTargetName(answer, r.Dir), nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
