package browser

import "errors"

var (
	// ErrStopRequested is raised at a stop checkpoint after
	// RequestStop. It is the only path to StateStopped.
	ErrStopRequested = errors.New("stop requested")

	// ErrProfileLocked means another session holds the persistent
	// profile directory. Initialization fails fast rather than risk a
	// corrupted profile.
	ErrProfileLocked = errors.New("browser profile is in use by another session")

	// ErrAuthFailed means authentication exhausted its retries.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionLost means the post-login marker disappeared mid-run
	// and the single recovery attempt did not restore it.
	ErrSessionLost = errors.New("portal session lost")

	// ErrFieldNotFound is a per-item failure: a form field could not
	// be resolved unambiguously.
	ErrFieldNotFound = errors.New("field not found")
)
