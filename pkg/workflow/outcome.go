package workflow

// Outcome codes delivered to the progress sink. Per-item failures are
// recorded against the item and never abort the run.
const (
	CodeSuccess           = "success"
	CodeConfirmed         = "confirmed"
	CodeMissingIdentifier = "missing identifier"
	CodeNotFound          = "identifier not found"
	CodeFieldNotFillable  = "field not fillable"
	CodeNoMatch           = "no match"
	CodeAmbiguousMatch    = "ambiguous match"
	CodeConfirmFailed     = "confirmation failed"
	CodeDownloadTimeout   = "download timeout"
	CodeDownloadDiscarded = "download discarded"
	CodeDownloadFailed    = "download failed"
)

// Outcome is the typed result of processing one work item.
type Outcome struct {
	// Code is one of the Code* constants.
	Code string

	// Detail is the human-readable context, e.g. the stored file name.
	Detail string

	// OK marks the item as successfully completed.
	OK bool

	// fatal aborts the whole run instead of just this item. Reserved
	// for failures outside the per-item contract, e.g. a lost session
	// that could not be recovered.
	fatal bool
	err   error
}

// Success builds a successful outcome.
func Success(code, detail string) Outcome {
	return Outcome{Code: code, Detail: detail, OK: true}
}

// Failure builds a per-item recoverable failure; the loop continues.
func Failure(code, detail string) Outcome {
	return Outcome{Code: code, Detail: detail}
}

// Fatal builds an outcome that aborts the run. err surfaces as the
// run's terminal error.
func Fatal(err error) Outcome {
	return Outcome{Code: "fatal", Detail: err.Error(), fatal: true, err: err}
}

// Fatal reports whether this outcome must abort the run.
func (o Outcome) Fatal() bool {
	return o.fatal
}

// Err returns the underlying error of a fatal outcome.
func (o Outcome) Err() error {
	return o.err
}
