// Package worker runs one workflow batch on a dedicated goroutine so
// the owning side (a UI loop, a CLI prompt) stays responsive. The
// worker reports back through channels only: a done signal carrying the
// overall result and the prompt broker for human-in-the-loop requests.
package worker

import (
	"errors"
	"sync"

	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/workflow"
)

// ErrAlreadyStarted is returned when Start is called twice on the same
// worker. A worker runs exactly one batch.
var ErrAlreadyStarted = errors.New("worker: already started")

// Runner is the slice of the workflow runner the worker drives.
// *workflow.Runner satisfies it.
type Runner interface {
	Execute(items []*workflow.Item) bool
	AuthenticateOnly() bool
}

// Stopper receives the cooperative stop request. *browser.Controller
// satisfies it; the flag is observed between items, never mid-item.
type Stopper interface {
	RequestStop()
}

// Worker owns the background goroutine for one run.
type Worker struct {
	runner  Runner
	stopper Stopper
	broker  *report.PromptBroker

	mu      sync.Mutex
	started bool
	done    chan bool
}

// New builds a worker around a runner. stopper may be nil when the run
// has no stop surface; broker may be nil for non-interactive runs.
func New(runner Runner, stopper Stopper, broker *report.PromptBroker) *Worker {
	return &Worker{
		runner:  runner,
		stopper: stopper,
		broker:  broker,
		done:    make(chan bool, 1),
	}
}

// Start launches the batch on the worker goroutine and returns
// immediately. The result arrives on Done exactly once.
func (w *Worker) Start(items []*workflow.Item) error {
	return w.launch(func() bool { return w.runner.Execute(items) })
}

// StartLoginOnly launches the authenticate-and-leave-open flow instead
// of a batch.
func (w *Worker) StartLoginOnly() error {
	return w.launch(w.runner.AuthenticateOnly)
}

func (w *Worker) launch(run func() bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	go func() {
		w.done <- run()
	}()
	return nil
}

// Done delivers the run's overall result: true when every item
// succeeded. The channel is buffered, so the goroutine never leaks when
// the owner stops listening.
func (w *Worker) Done() <-chan bool {
	return w.done
}

// Wait blocks until the run finishes and returns its result.
func (w *Worker) Wait() bool {
	return <-w.done
}

// RequestStop asks the running batch to stop at the next item boundary.
// Safe from any goroutine, safe to call more than once.
func (w *Worker) RequestStop() {
	if w.stopper != nil {
		w.stopper.RequestStop()
	}
}

// Prompts exposes the human-in-the-loop requests of the running batch.
// Nil when the worker was built without a broker.
func (w *Worker) Prompts() <-chan report.InputRequest {
	if w.broker == nil {
		return nil
	}
	return w.broker.Requests()
}
