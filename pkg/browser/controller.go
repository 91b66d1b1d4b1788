package browser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/logging"
	"github.com/gianky00/isab-timesheet/pkg/report"
)

const (
	// authAttempts bounds authentication retries. Each attempt fully
	// re-initializes the browser session.
	authAttempts = 3

	// authRetryDelay is the fixed delay between attempts.
	authRetryDelay = 5 * time.Second

	// popupSettleDelay gives the portal time to render its session and
	// acknowledgement popups after a submit.
	popupSettleDelay = 2 * time.Second
)

// Credentials is the opaque username/password pair. It is passed once
// at construction, held privately and never logged.
type Credentials struct {
	Username string
	Password string
}

// Options configures one controller instance.
type Options struct {
	// PortalURL is the login entry point.
	PortalURL string

	// Headless runs the browser without a visible window.
	Headless bool

	// Timeout is the default timeout for page operations.
	Timeout time.Duration

	// ProfileDir is the persistent profile/cache directory, exclusive
	// per machine.
	ProfileDir string

	// DownloadDir is where triggered downloads land.
	DownloadDir string
}

// Controller owns exactly one browser session: lifecycle,
// authentication with retry, the cooperative stop flag, and the
// lifecycle state machine.
type Controller struct {
	opts  Options
	creds Credentials
	sinks report.Sinks
	log   *logging.Logger

	pw      *playwright.Playwright
	context playwright.BrowserContext
	page    playwright.Page
	nav     *Navigator

	machine      *stateMachine
	stopFlag     atomic.Bool
	lock         *profileLock
	cacheCleared bool
}

// NewController builds a controller. Credentials are pure data; no
// network traffic happens before Initialize.
func NewController(creds Credentials, opts Options, sinks report.Sinks) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	log, _ := logging.NewLogger("browser")
	return &Controller{
		opts:    opts,
		creds:   creds,
		sinks:   sinks,
		log:     log,
		machine: newStateMachine(),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.machine.State()
}

// Navigator returns the page navigator. Valid after Initialize.
func (c *Controller) Navigator() *Navigator {
	return c.nav
}

// RequestStop sets the cooperative stop flag. The run observes it at
// the next checkpoint; nothing is preempted.
func (c *Controller) RequestStop() {
	c.stopFlag.Store(true)
	c.sinks.Logf("Interruzione richiesta...")
	c.log.Infof("stop requested")
}

// StopRequested reports the cooperative flag.
func (c *Controller) StopRequested() bool {
	return c.stopFlag.Load()
}

// CheckStop returns ErrStopRequested when a stop is pending. Called at
// the documented safe points: per-item iteration starts and before
// long waits.
func (c *Controller) CheckStop() error {
	if c.stopFlag.Load() {
		return ErrStopRequested
	}
	return nil
}

// Initialize creates the browser session: exclusive profile lock,
// anti-detection launch options, bound download directory. A launch
// failure that looks like a corrupted cached browser install triggers
// one cache-clear-and-retry.
func (c *Controller) Initialize() error {
	if err := c.machine.transition(StateInitializing); err != nil {
		return err
	}
	c.sinks.Logf("Inizializzazione browser...")

	lock, err := acquireProfileLock(c.opts.ProfileDir)
	if err != nil {
		c.fail(err)
		return err
	}
	c.lock = lock

	if err := c.launch(); err != nil {
		if isCorruptedInstall(err) && !c.cacheCleared {
			c.cacheCleared = true
			c.log.Warnf("launch failed, clearing profile cache and retrying: %v", err)
			c.sinks.Logf("Cache browser corrotta, pulizia e nuovo tentativo...")
			if resetErr := resetProfileCache(c.opts.ProfileDir); resetErr != nil {
				c.log.Warnf("cache reset incomplete: %v", resetErr)
			}
			err = c.launch()
		}
		if err != nil {
			c.lock.release()
			c.lock = nil
			c.fail(err)
			return err
		}
	}

	c.sinks.Logf("Browser inizializzato")
	return nil
}

func (c *Controller) launch() error {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	c.pw = pw

	context, err := pw.Chromium.LaunchPersistentContext(c.opts.ProfileDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:        playwright.Bool(c.opts.Headless),
			AcceptDownloads: playwright.Bool(true),
			DownloadsPath:   playwright.String(c.opts.DownloadDir),
			Viewport:        &playwright.Size{Width: 1920, Height: 1080},
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-gpu",
				"--no-sandbox",
				"--disable-dev-shm-usage",
				"--disable-extensions",
				"--window-size=1920,1080",
			},
		})
	if err != nil {
		c.stopPlaywright()
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	c.context = context

	// The portal rejects sessions that advertise automation.
	if err := context.AddInitScript(playwright.Script{
		Content: playwright.String("Object.defineProperty(navigator, 'webdriver', {get: () => undefined})"),
	}); err != nil {
		c.log.Warnf("failed to add anti-detection script: %v", err)
	}

	pages := context.Pages()
	if len(pages) > 0 {
		c.page = pages[0]
	} else {
		page, err := context.NewPage()
		if err != nil {
			c.closeContext()
			return fmt.Errorf("failed to create page: %w", err)
		}
		c.page = page
	}
	c.page.SetDefaultTimeout(float64(c.opts.Timeout.Milliseconds()))

	c.nav = NewNavigator(c.page, c.sinks, c.opts.Timeout)
	return nil
}

// isCorruptedInstall matches launch failures caused by a broken cached
// browser binary rather than by configuration. Only the driver's
// executable-missing messages qualify; other launch errors (profile
// permissions, bad arguments) must not trigger a cache clear.
func isCorruptedInstall(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "executable doesn't exist") ||
		strings.Contains(msg, "executable does not exist")
}

// Authenticate logs into the portal, retrying up to authAttempts with a
// fixed delay. Every retry tears the session down and re-initializes it
// from scratch. Returns ErrAuthFailed once retries are exhausted.
func (c *Controller) Authenticate() error {
	if err := c.machine.transition(StateLoggingIn); err != nil {
		return err
	}

	for attempt := 1; attempt <= authAttempts; attempt++ {
		if err := c.CheckStop(); err != nil {
			c.markStopped()
			return err
		}

		if attempt > 1 {
			c.sinks.Logf(fmt.Sprintf("Nuovo tentativo di accesso (%d/%d)...", attempt, authAttempts))
			time.Sleep(authRetryDelay)

			c.Terminate()
			if err := c.Initialize(); err != nil {
				return err
			}
			c.machine.mustTransition(StateLoggingIn)
		}

		err := c.loginOnce()
		if err == nil {
			c.sinks.Logf("Login effettuato con successo")
			return nil
		}
		if errors.Is(err, ErrStopRequested) {
			c.markStopped()
			return err
		}
		c.log.Warnf("login attempt %d failed: %v", attempt, err)
		c.sinks.Logf("Login fallito - " + err.Error())
	}

	failure := fmt.Errorf("%w after %d attempts", ErrAuthFailed, authAttempts)
	c.fail(failure)
	return failure
}

// loginOnce performs a single authentication attempt: navigate to the
// portal, submit credentials, dismiss popups, verify the session.
func (c *Controller) loginOnce() error {
	if err := c.CheckStop(); err != nil {
		return err
	}
	c.sinks.Logf("Accesso al portale...")

	if _, err := c.page.Goto(c.opts.PortalURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to reach portal: %w", err)
	}
	c.nav.WaitForOverlayCleared(c.opts.Timeout)

	if err := c.nav.TypeField(locator.UsernameField, c.creds.Username); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := c.nav.TypeField(locator.PasswordField, c.creds.Password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := c.nav.Click(locator.LoginButton); err != nil {
		return fmt.Errorf("login button: %w", err)
	}
	c.sinks.Logf("Credenziali inviate...")

	if err := c.CheckStop(); err != nil {
		return err
	}

	c.dismissPopups()
	c.nav.WaitForOverlayCleared(c.opts.Timeout)

	if !c.verifyLoggedIn() {
		return fmt.Errorf("post-login marker absent")
	}
	return nil
}

// dismissPopups clears the "session already active" confirmation and
// generic acknowledgement dialogs when present. Their absence is the
// normal case and not an error.
func (c *Controller) dismissPopups() {
	time.Sleep(popupSettleDelay)

	if c.nav.ClickIfPresent(locator.SessionActiveYes) {
		c.sinks.Logf("Popup sessione attiva gestito")
		c.nav.WaitForOverlayCleared(c.opts.Timeout)
	}
	if c.nav.ClickIfPresent(locator.PopupOK) {
		c.sinks.Logf("Popup di avviso gestito")
	}
}

// verifyLoggedIn checks both markers: the URL no longer points at the
// login page and the post-login DOM marker is present.
func (c *Controller) verifyLoggedIn() bool {
	url := strings.ToLower(c.page.URL())
	if strings.Contains(url, "login") {
		return false
	}
	return c.nav.IsPresent(locator.PostLoginMarker)
}

// EnsureLoggedIn detects mid-run session loss and makes one recovery
// attempt (reload plus credential re-submit) before giving up with
// ErrSessionLost.
func (c *Controller) EnsureLoggedIn() error {
	if c.verifyLoggedIn() {
		return nil
	}

	c.log.Warnf("post-login marker missing, attempting session recovery")
	c.sinks.Logf("Sessione scaduta, tentativo di ripristino...")

	if _, err := c.page.Reload(); err != nil {
		return fmt.Errorf("%w: reload failed: %v", ErrSessionLost, err)
	}
	c.nav.WaitForOverlayCleared(c.opts.Timeout)

	if c.verifyLoggedIn() {
		return nil
	}
	if err := c.loginOnce(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return nil
}

// BeginRun moves the controller into the running state after a
// successful authentication.
func (c *Controller) BeginRun() error {
	return c.machine.transition(StateRunning)
}

// Complete marks the run finished. No-op when already terminal (a stop
// observed late must not be overwritten).
func (c *Controller) Complete() {
	if c.machine.State().Terminal() {
		return
	}
	c.machine.mustTransition(StateCompleted)
}

// Fail marks the run failed unless already terminal.
func (c *Controller) Fail(err error) {
	c.fail(err)
}

func (c *Controller) fail(err error) {
	c.log.Errorf("run failed: %v", err)
	if c.machine.State().Terminal() {
		return
	}
	c.machine.mustTransition(StateError)
}

func (c *Controller) markStopped() {
	if c.machine.State().Terminal() {
		return
	}
	c.machine.mustTransition(StateStopped)
}

// MarkStopped finalizes a cooperatively stopped run.
func (c *Controller) MarkStopped() {
	c.markStopped()
}

// Logout navigates the settings menu to the Esci entry. Best effort:
// failures are logged, never fatal.
func (c *Controller) Logout() {
	if c.nav == nil {
		return
	}
	if err := c.nav.Click(locator.SettingsButton); err != nil {
		c.log.Warnf("logout: settings button: %v", err)
		return
	}
	if err := c.nav.Click(locator.LogoutEntry); err != nil {
		c.log.Warnf("logout: menu entry: %v", err)
		return
	}
	c.sinks.Logf("Logout effettuato")
}

// Terminate releases every session resource: page, context, playwright
// driver and the profile lock. Idempotent.
func (c *Controller) Terminate() {
	c.teardownSession()
	if c.lock != nil {
		c.lock.release()
		c.lock = nil
	}
	c.log.Infof("session terminated")
}

func (c *Controller) teardownSession() {
	c.closeContext()
	c.stopPlaywright()
	c.page = nil
	c.nav = nil
}

func (c *Controller) closeContext() {
	if c.context != nil {
		_ = c.context.Close()
		c.context = nil
	}
}

func (c *Controller) stopPlaywright() {
	if c.pw != nil {
		_ = c.pw.Stop()
		c.pw = nil
	}
}
