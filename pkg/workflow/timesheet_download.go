package workflow

import (
	"fmt"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/download"
	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// Timesheet report page chains.
var (
	tsOrderNumberField = locator.NewChain("order number field",
		locator.Attr("name", "NumeroOda"),
		locator.XPath("//label[contains(text(), 'Numero OdA')]/following::input[1]"),
	)

	tsOrderPositionField = locator.NewChain("order position field",
		locator.Attr("name", "PosizioneOda"),
		locator.XPath("//label[contains(text(), 'Posizione OdA')]/following::input[1]"),
	)

	tsDateFromField = locator.NewChain("date from field",
		locator.Attr("name", "DataTimesheetDa"),
	)

	tsExportButton = locator.NewChain("export excel tool",
		locator.XPath("//div[contains(@class, 'x-tool') and @role='button'][.//div[@data-ref='toolEl' and contains(@class, 'x-tool-tool-el') and contains(@style, 'FontAwesome')]]"),
		locator.PartialText("Esporta in Excel"),
	)
)

// TimesheetDownloadExecutor downloads one timesheet export per work
// item from the Report → Timesheet section.
type TimesheetDownloadExecutor struct {
	ctrl   *browser.Controller
	sinks  report.Sinks
	params Params
	rec    *download.Reconciler

	// lastSearchKey implements context reuse: consecutive items with
	// the same order/position pair skip the search and export the grid
	// already on screen.
	lastSearchKey string
}

// NewTimesheetDownloadExecutor builds the download bot.
func NewTimesheetDownloadExecutor(ctrl *browser.Controller, params Params, sinks report.Sinks) *TimesheetDownloadExecutor {
	return &TimesheetDownloadExecutor{
		ctrl:   ctrl,
		sinks:  sinks,
		params: params,
		rec:    newReconciler(params, sinks),
	}
}

func (e *TimesheetDownloadExecutor) Name() string { return "scarico-ts" }

func (e *TimesheetDownloadExecutor) Validate(item *Item) *Outcome {
	return requireIdentifier(item)
}

// Setup navigates Report → Timesheet and applies the shared filters:
// supplier and start date.
func (e *TimesheetDownloadExecutor) Setup() error {
	nav := e.ctrl.Navigator()
	e.sinks.Logf("Navigazione Report -> Timesheet...")

	if err := nav.MenuPath(locator.MenuEntry("Report"), locator.MenuEntry("Timesheet")); err != nil {
		return err
	}

	if e.params.Supplier != "" {
		e.sinks.Logf("Selezione fornitore: " + e.params.Supplier)
		if err := selectSupplier(nav, e.params.Supplier); err != nil {
			return fmt.Errorf("supplier filter: %w", err)
		}
	}

	if e.params.DateFrom != "" {
		if err := nav.FillField(tsDateFromField, e.params.DateFrom); err != nil {
			return fmt.Errorf("date filter: %w", err)
		}
	}
	return nil
}

func (e *TimesheetDownloadExecutor) Process(item *Item) Outcome {
	nav := e.ctrl.Navigator()

	if err := e.ctrl.EnsureLoggedIn(); err != nil {
		return Fatal(err)
	}

	key := item.OrderNumber + "|" + item.Position
	if key != e.lastSearchKey {
		if outcome, ok := e.search(nav, item); !ok {
			e.lastSearchKey = ""
			return outcome
		}
		e.lastSearchKey = key
	}

	return exportAndReconcile(e.ctrl, e.rec, tsExportButton, item.OrderNumber, item.Position)
}

// search fills the order filters and submits. The overlay wait here is
// hard: proceeding with stale results would export the previous item's
// grid under this item's name.
func (e *TimesheetDownloadExecutor) search(nav *browser.Navigator, item *Item) (Outcome, bool) {
	if err := nav.FillField(tsOrderNumberField, item.OrderNumber); err != nil {
		return Failure(CodeFieldNotFillable, err.Error()), false
	}
	if err := nav.FillField(tsOrderPositionField, item.Position); err != nil {
		return Failure(CodeFieldNotFillable, err.Error()), false
	}

	if err := nav.Click(locator.SearchButton); err != nil {
		return Failure(CodeNoMatch, "search button: "+err.Error()), false
	}
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeNoMatch, "results did not load: "+err.Error()), false
	}
	return Outcome{}, true
}

func (e *TimesheetDownloadExecutor) Teardown() {}
