package workflow

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/download"
	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// Params are the workflow-specific knobs shared by the executors,
// sourced from the config surface.
type Params struct {
	// Supplier is the supplier filter, e.g. "KK10608 - COEMI S.R.L.".
	Supplier string

	// DateFrom and DateTo bound the query, dd.mm.yyyy.
	DateFrom string
	DateTo   string

	// Contract is the default contract reference for detail rows that
	// carry none of their own.
	Contract string

	// DownloadDir is where exports land and get reconciled.
	DownloadDir string

	// RequestInput enables interactive download-collision resolution;
	// nil means deterministic suffixes.
	RequestInput func(prompt string) string
}

// downloadFreshness rejects leftovers from earlier sessions in a shared
// download directory as reconciliation candidates.
const downloadFreshness = 10 * time.Minute

// newReconciler builds the xlsx reconciler every export-producing
// executor uses.
func newReconciler(params Params, sinks report.Sinks) *download.Reconciler {
	return &download.Reconciler{
		Dir:          params.DownloadDir,
		Pattern:      "*.xlsx",
		Timeout:      wait.DownloadTimeout,
		Freshness:    downloadFreshness,
		Log:          sinks.Log,
		RequestInput: params.RequestInput,
	}
}

// selectSupplier opens the shared supplier combo and picks the entry.
func selectSupplier(nav *browser.Navigator, supplier string) error {
	return nav.SelectComboOption(locator.SupplierDropdownArrow, locator.SupplierOption(supplier))
}

// exportAndReconcile snapshots the download directory, triggers the
// export and reconciles the resulting file to
// <primaryID>[-<secondaryID>].xlsx. Failures map onto the per-item
// outcome codes: nothing here aborts the run.
func exportAndReconcile(ctrl *browser.Controller, rec *download.Reconciler, exportButton locator.Chain, primaryID, secondaryID string) Outcome {
	nav := ctrl.Navigator()

	before, err := rec.Snapshot()
	if err != nil {
		return Failure(CodeDownloadFailed, err.Error())
	}

	// The download wait is long; honor a pending stop first.
	if err := ctrl.CheckStop(); err != nil {
		return Fatal(err)
	}

	record, err := rec.TriggerAndWait(func() error {
		return nav.Click(exportButton)
	}, before)
	if err != nil {
		if errors.Is(err, download.ErrTimeout) {
			return Failure(CodeDownloadTimeout, "no file appeared within the window")
		}
		return Failure(CodeDownloadFailed, err.Error())
	}

	record, err = rec.Reconcile(record, primaryID, secondaryID)
	if err != nil {
		if errors.Is(err, download.ErrDiscarded) {
			return Failure(CodeDownloadDiscarded, "collision not resolved, file discarded")
		}
		return Failure(CodeDownloadFailed, err.Error())
	}

	return Success(CodeSuccess, "stored "+filepath.Base(record.FinalPath))
}

// requireIdentifier is the shared Validate for executors that cannot
// work without an order number.
func requireIdentifier(item *Item) *Outcome {
	if item.OrderNumber == "" {
		o := Failure(CodeMissingIdentifier, "order number is empty")
		return &o
	}
	return nil
}
