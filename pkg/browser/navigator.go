package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/logging"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

const (
	// presenceProbeTimeout bounds a single strategy probe so a chain
	// of misses fails in bounded time.
	presenceProbeTimeout = 2 * time.Second

	// overlaySettleDelay lets the UI settle after the mask clears; the
	// portal repaints briefly after hiding it.
	overlaySettleDelay = 300 * time.Millisecond

	// ambiguousScanLimit caps how many candidate elements the
	// disambiguation heuristics inspect.
	ambiguousScanLimit = 10
)

// fillEventScript pushes a value through the portal's client-side
// validation pipeline. Assigning .value alone is invisible to ExtJS;
// the framework only picks the value up from its own event handlers.
const fillEventScript = `(el, value) => {
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	el.dispatchEvent(new Event('blur', { bubbles: true }));
}`

// Navigator drives one page through menu traversal, form filling and
// overlay waits, resolving every target through its locator chain.
type Navigator struct {
	page    playwright.Page
	sinks   report.Sinks
	log     *logging.Logger
	timeout time.Duration
}

// NewNavigator wraps a page.
func NewNavigator(page playwright.Page, sinks report.Sinks, timeout time.Duration) *Navigator {
	log, _ := logging.NewLogger("navigator")
	return &Navigator{page: page, sinks: sinks, log: log, timeout: timeout}
}

// probe reports whether a selector resolves to at least one visible
// element right now.
func (n *Navigator) probe(selector string) (bool, error) {
	loc := n.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	visible, err := loc.First().IsVisible()
	if err != nil {
		return false, err
	}
	return visible, nil
}

// Resolve runs the chain's fallback strategies and returns a locator
// for the winning one.
func (n *Navigator) Resolve(chain locator.Chain) (playwright.Locator, error) {
	strategy, err := locator.Resolve(chain, n.probe)
	if err != nil {
		return nil, err
	}
	n.log.Debugf("resolved %q via %s", chain.Target, strategy)
	return n.page.Locator(strategy.Selector()).First(), nil
}

// resolveWithin retries chain resolution until the timeout, for targets
// that render asynchronously after a navigation.
func (n *Navigator) resolveWithin(chain locator.Chain, timeout time.Duration) (playwright.Locator, error) {
	var loc playwright.Locator
	found := wait.ForCondition(func() bool {
		resolved, err := n.Resolve(chain)
		if err != nil {
			return false
		}
		loc = resolved
		return true
	}, timeout)
	if !found {
		return nil, fmt.Errorf("%q did not appear within %s", chain.Target, timeout)
	}
	return loc, nil
}

// Click resolves the chain and clicks the element.
func (n *Navigator) Click(chain locator.Chain) error {
	loc, err := n.resolveWithin(chain, n.timeout)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(n.timeout.Milliseconds())),
	}); err != nil {
		// Overlapping ExtJS layers intercept pointer events; a DOM
		// click still reaches the element.
		if _, jsErr := loc.Evaluate("el => el.click()", nil); jsErr != nil {
			return fmt.Errorf("click on %q failed: %w", chain.Target, err)
		}
	}
	return nil
}

// ClickIfPresent clicks the element when the chain resolves right now,
// and reports whether it did. Used for popups whose absence is normal.
func (n *Navigator) ClickIfPresent(chain locator.Chain) bool {
	strategy, err := locator.Resolve(chain, n.probe)
	if err != nil {
		return false
	}
	loc := n.page.Locator(strategy.Selector()).First()
	if err := loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(presenceProbeTimeout.Milliseconds())),
	}); err != nil {
		n.log.Debugf("optional click on %q failed: %v", chain.Target, err)
		return false
	}
	return true
}

// IsPresent reports whether the chain resolves right now.
func (n *Navigator) IsPresent(chain locator.Chain) bool {
	_, err := locator.Resolve(chain, n.probe)
	return err == nil
}

// MenuPath walks an ordered sequence of menu steps. Each step is
// resolved through its fallback chain, clicked, and followed by an
// overlay wait. The whole path fails as soon as one step exhausts its
// strategies.
func (n *Navigator) MenuPath(steps ...locator.Chain) error {
	for _, step := range steps {
		if err := n.Click(step); err != nil {
			return fmt.Errorf("menu path failed at %q: %w", step.Target, err)
		}
		n.WaitForOverlayCleared(wait.OverlayTimeout)
	}
	return nil
}

// TypeField resolves the chain, clears the field and types the value
// through the regular input pipeline. Used where native typing is
// enough, e.g. the login form.
func (n *Navigator) TypeField(chain locator.Chain, value string) error {
	loc, err := n.resolveWithin(chain, n.timeout)
	if err != nil {
		return err
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("fill %q: %w", chain.Target, err)
	}
	return nil
}

// FillField sets a value on an ExtJS-validated field: resolve with
// disambiguation, clear, assign, then dispatch the synthetic
// input/change/blur sequence so the framework sees the value. A field
// that cannot be resolved unambiguously returns ErrFieldNotFound, a
// per-item failure.
func (n *Navigator) FillField(chain locator.Chain, value string) error {
	loc, err := n.resolveField(chain)
	if err != nil {
		return err
	}

	if _, err := loc.Evaluate(fillEventScript, value); err != nil {
		return fmt.Errorf("fill %q: %w", chain.Target, err)
	}
	return nil
}

// resolveField applies the ambiguous-field heuristics: resolve the
// chain, and when several elements match take the first visible,
// editable candidate. No unambiguous match yields ErrFieldNotFound.
func (n *Navigator) resolveField(chain locator.Chain) (playwright.Locator, error) {
	strategy, err := locator.Resolve(chain, n.probe)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, chain.Target)
	}

	candidates := n.page.Locator(strategy.Selector())
	count, err := candidates.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFieldNotFound, chain.Target, err)
	}
	if count == 1 {
		return candidates.First(), nil
	}

	if count > ambiguousScanLimit {
		count = ambiguousScanLimit
	}
	for i := 0; i < count; i++ {
		candidate := candidates.Nth(i)
		visible, err := candidate.IsVisible()
		if err != nil || !visible {
			continue
		}
		editable, err := candidate.IsEditable()
		if err != nil || !editable {
			continue
		}
		return candidate, nil
	}
	return nil, fmt.Errorf("%w: %q is ambiguous (%d candidates, none editable)", ErrFieldNotFound, chain.Target, count)
}

// WaitForOverlayCleared waits for the loading mask to disappear. On
// timeout it logs a warning and reports false, but callers proceed: at
// navigation call sites the portal sometimes clears the mask without
// any observable signal, and aborting would be worse than continuing.
func (n *Navigator) WaitForOverlayCleared(timeout time.Duration) bool {
	selector := locator.OverlayMask.Strategies[0].Selector()
	loc := n.page.Locator(selector)

	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		n.log.Warnf("overlay did not clear within %s", timeout)
		n.sinks.Logf("Attenzione: timeout attesa caricamento, si procede")
		return false
	}
	time.Sleep(overlaySettleDelay)
	return true
}

// RequireOverlayCleared is the hard-fail variant for call sites where a
// stuck overlay means the submitted action never completed, so
// proceeding would act on stale results.
func (n *Navigator) RequireOverlayCleared(timeout time.Duration) error {
	if !n.WaitForOverlayCleared(timeout) {
		return fmt.Errorf("loading overlay still present after %s", timeout)
	}
	return nil
}

// SelectComboOption opens an ExtJS combo via its trigger arrow and
// clicks the option. The option list renders detached from the combo,
// so both are separate chains.
func (n *Navigator) SelectComboOption(arrow, option locator.Chain) error {
	if err := n.Click(arrow); err != nil {
		return err
	}

	loc, err := n.resolveWithin(option, n.timeout)
	if err != nil {
		return err
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		n.log.Debugf("scroll to %q: %v", option.Target, err)
	}
	// Native clicks on detached combo lists are flaky; go straight to
	// the DOM click.
	if _, err := loc.Evaluate("el => el.click()", nil); err != nil {
		return fmt.Errorf("select %q: %w", option.Target, err)
	}
	n.WaitForOverlayCleared(wait.OverlayTimeout)
	return nil
}

// Page exposes the underlying page for workflow-specific interaction.
func (n *Navigator) Page() playwright.Page {
	return n.page
}
