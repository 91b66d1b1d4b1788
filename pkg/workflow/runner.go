package workflow

import (
	"errors"
	"fmt"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/logging"
	"github.com/gianky00/isab-timesheet/pkg/report"
)

// Session is the slice of the browser controller the runner drives.
// *browser.Controller satisfies it.
type Session interface {
	Initialize() error
	Authenticate() error
	BeginRun() error
	CheckStop() error
	Logout()
	Complete()
	Fail(error)
	MarkStopped()
	Terminate()
	State() browser.State
}

// Executor is one bot type's workflow: shared setup once per run, then
// a short state machine per item.
type Executor interface {
	// Name labels the executor in logs.
	Name() string

	// Validate runs the pre-portal checks on one item. A non-nil
	// outcome records the item as processed without any portal
	// interaction (e.g. a missing identifier).
	Validate(item *Item) *Outcome

	// Setup runs once after authentication: navigate to the section,
	// apply shared filters.
	Setup() error

	// Process runs the per-item workflow. Per-item failures come back
	// as non-OK outcomes; only a Fatal outcome aborts the run.
	Process(item *Item) Outcome

	// Teardown runs after the loop, best effort (e.g. logout helpers
	// beyond the standard one).
	Teardown()
}

// Runner executes one batch on one session. The whole run happens on
// the calling goroutine; see pkg/worker for the dedicated-thread
// wrapper.
type Runner struct {
	session Session
	exec    Executor
	sinks   report.Sinks
	log     *logging.Logger
}

// NewRunner wires a session and an executor together.
func NewRunner(session Session, exec Executor, sinks report.Sinks) *Runner {
	log, _ := logging.NewLogger("runner")
	return &Runner{session: session, exec: exec, sinks: sinks, log: log}
}

// Execute runs the full workflow: authenticate, shared setup, the
// per-item loop, logout, release. The returned boolean is "every item
// succeeded"; detail lives in the progress sink events, delivered in
// processing order.
func (r *Runner) Execute(items []*Item) bool {
	defer r.session.Terminate()

	if !r.start() {
		return false
	}

	if pendingCount(items) == 0 {
		// Nothing to do beyond authentication: no navigation, no
		// filters, trivially successful.
		r.sinks.Logf("Nessun elemento da elaborare")
		if err := r.session.CheckStop(); err != nil {
			r.session.MarkStopped()
			return false
		}
		r.session.Complete()
		return true
	}

	if err := r.exec.Setup(); err != nil {
		if r.observeStop(err) {
			return false
		}
		r.sinks.Logf("Preparazione fallita: " + err.Error())
		r.session.Fail(fmt.Errorf("%s setup: %w", r.exec.Name(), err))
		return false
	}

	allOK := true
	for index, item := range items {
		if item.State.Terminal() {
			// Trust caller-supplied state: no interaction, no event.
			r.log.Debugf("item %s already %s, skipped", item.ID(), item.State)
			continue
		}

		if err := r.session.CheckStop(); err != nil {
			r.sinks.Logf("Esecuzione interrotta")
			r.session.MarkStopped()
			return false
		}

		r.sinks.Logf(fmt.Sprintf("Elaborazione %d/%d: %s", index+1, len(items), item.ID()))

		outcome := r.processOne(item)
		if outcome.Fatal() {
			if r.observeStop(outcome.Err()) {
				return false
			}
			r.session.Fail(outcome.Err())
			return false
		}

		item.finish(outcome)
		r.sinks.Report(item.ID(), outcome.Code, outcome.Detail)
		if !outcome.OK {
			allOK = false
		}
	}

	// A stop raised while the last item was processing must still win:
	// the final state after a requested stop is Stopped, never
	// Completed.
	if err := r.session.CheckStop(); err != nil {
		r.sinks.Logf("Esecuzione interrotta")
		r.session.MarkStopped()
		return false
	}

	r.exec.Teardown()
	r.session.Logout()
	r.session.Complete()
	return allOK
}

// AuthenticateOnly initializes and logs in, then leaves the browser
// open for manual use. The caller owns the eventual Terminate.
func (r *Runner) AuthenticateOnly() bool {
	if err := r.session.Initialize(); err != nil {
		r.session.Fail(err)
		return false
	}
	if err := r.session.Authenticate(); err != nil {
		if !r.observeStop(err) {
			r.session.Fail(err)
		}
		r.session.Terminate()
		return false
	}
	r.session.Complete()
	return true
}

// start brings the session to the running state.
func (r *Runner) start() bool {
	if err := r.session.Initialize(); err != nil {
		r.sinks.Logf("Errore inizializzazione: " + err.Error())
		r.session.Fail(err)
		return false
	}
	if err := r.session.Authenticate(); err != nil {
		if !r.observeStop(err) {
			r.sinks.Logf("Autenticazione fallita")
			r.session.Fail(err)
		}
		return false
	}
	if err := r.session.BeginRun(); err != nil {
		r.session.Fail(err)
		return false
	}
	return true
}

// processOne isolates the per-item boundary: validation first, then the
// executor's state machine. A panic inside Process is converted to a
// per-item failure rather than tearing the run down with the item.
func (r *Runner) processOne(item *Item) (outcome Outcome) {
	if early := r.exec.Validate(item); early != nil {
		return *early
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("panic processing %s: %v", item.ID(), p)
			outcome = Failure(CodeConfirmFailed, fmt.Sprintf("internal error: %v", p))
		}
	}()
	return r.exec.Process(item)
}

func pendingCount(items []*Item) int {
	count := 0
	for _, item := range items {
		if !item.State.Terminal() {
			count++
		}
	}
	return count
}

// observeStop finalizes a cooperative stop. Reports whether err was the
// stop signal.
func (r *Runner) observeStop(err error) bool {
	if errors.Is(err, browser.ErrStopRequested) {
		r.session.MarkStopped()
		return true
	}
	return false
}
