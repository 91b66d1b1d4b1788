package report

// InputRequest is one human-in-the-loop prompt in flight. The worker
// blocks until Reply is called exactly once by the owning side.
type InputRequest struct {
	Prompt   string
	response chan string
}

// Reply delivers the human's answer and unblocks the waiting worker.
// An empty answer means "skip"; see the reconciler's interactive mode.
func (r InputRequest) Reply(value string) {
	r.response <- value
}

// PromptBroker is the explicit message-passing channel between the
// worker goroutine and the single responder on the owning side. The
// worker never touches caller UI directly; it posts a request and
// blocks. The broker applies no timeout of its own: the owner is
// expected to always answer.
type PromptBroker struct {
	requests chan InputRequest
}

// NewPromptBroker creates a broker. One broker serves one run; requests
// are strictly sequential because the worker blocks on each.
func NewPromptBroker() *PromptBroker {
	return &PromptBroker{requests: make(chan InputRequest)}
}

// Ask posts a prompt and blocks until the owner replies. Called from
// the worker goroutine only.
func (b *PromptBroker) Ask(prompt string) string {
	req := InputRequest{Prompt: prompt, response: make(chan string, 1)}
	b.requests <- req
	return <-req.response
}

// Requests exposes pending prompts to the owning side. The owner reads
// a request, gathers the answer (a modal, a terminal read) and calls
// Reply on it.
func (b *PromptBroker) Requests() <-chan InputRequest {
	return b.requests
}

// InputFunc adapts the broker to the plain func(prompt) string shape
// the reconciler consumes. Nil-safe: a nil broker yields a requester
// that always answers empty, i.e. non-interactive mode.
func (b *PromptBroker) InputFunc() func(string) string {
	if b == nil {
		return func(string) string { return "" }
	}
	return b.Ask
}
