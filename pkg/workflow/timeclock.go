package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/download"
	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// Report → Timbrature page chains.
var (
	tcDateFromField = locator.NewChain("clock date from field",
		locator.Attr("name", "DataTimbraturaDa"),
		locator.XPath("//label[contains(text(), 'Data Da')]/following::input[1]"),
	)

	tcDateToField = locator.NewChain("clock date to field",
		locator.Attr("name", "DataTimbraturaA"),
		locator.XPath("//label[contains(text(), 'Data A')]/following::input[1]"),
	)

	tcPresenceCheckbox = locator.NewChain("verify presence checkbox",
		locator.Attr("name", "VerificaPresenzaTimesheet"),
	)

	tcExportButton = locator.NewChain("export excel tool",
		locator.XPath("//div[contains(@class, 'x-tool') and @role='button'][.//div[@data-ref='toolEl' and contains(@class, 'x-tool-tool-el') and contains(@style, 'FontAwesome')]]"),
		locator.PartialText("Esporta in Excel"),
		locator.Role("button", "Excel"),
	)
)

// TimeClockExecutor archives the clock-in/clock-out report for a date
// range from Report → Timbrature. The whole range is one export, so a
// run carries one logical work item.
type TimeClockExecutor struct {
	ctrl   *browser.Controller
	sinks  report.Sinks
	params Params
	rec    *download.Reconciler
}

// NewTimeClockExecutor builds the time-clock archive bot.
func NewTimeClockExecutor(ctrl *browser.Controller, params Params, sinks report.Sinks) *TimeClockExecutor {
	return &TimeClockExecutor{
		ctrl:   ctrl,
		sinks:  sinks,
		params: params,
		rec:    newReconciler(params, sinks),
	}
}

// TimeClockItem is the single logical item of a time-clock run.
func TimeClockItem() *Item {
	return &Item{OrderNumber: "timbrature", State: ItemPending}
}

func (e *TimeClockExecutor) Name() string { return "timbrature" }

func (e *TimeClockExecutor) Validate(*Item) *Outcome { return nil }

// Setup navigates to the section; filters are per export, not shared.
func (e *TimeClockExecutor) Setup() error {
	nav := e.ctrl.Navigator()
	e.sinks.Logf("Navigazione Report -> Timbrature...")
	return nav.MenuPath(locator.MenuEntry("Report"), locator.MenuEntry("Timbrature"))
}

func (e *TimeClockExecutor) Process(item *Item) Outcome {
	nav := e.ctrl.Navigator()

	if err := e.ctrl.EnsureLoggedIn(); err != nil {
		return Fatal(err)
	}

	if e.params.Supplier != "" {
		if err := selectSupplier(nav, e.params.Supplier); err != nil {
			return Failure(CodeFieldNotFillable, "supplier: "+err.Error())
		}
	}
	if e.params.DateFrom != "" {
		if err := nav.FillField(tcDateFromField, e.params.DateFrom); err != nil {
			return fieldOutcome(err)
		}
	}
	if e.params.DateTo != "" {
		if err := nav.FillField(tcDateToField, e.params.DateTo); err != nil {
			return fieldOutcome(err)
		}
	}
	if nav.IsPresent(tcPresenceCheckbox) {
		if err := nav.Click(tcPresenceCheckbox); err != nil {
			e.sinks.Logf("Attenzione: flag verifica presenza non impostato")
		}
	}

	if err := nav.Click(locator.SearchButton); err != nil {
		return Failure(CodeNoMatch, "search: "+err.Error())
	}
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeNoMatch, "results did not load: "+err.Error())
	}

	return exportAndReconcile(e.ctrl, e.rec, tcExportButton, "timbrature", e.rangeSuffix())
}

// rangeSuffix makes the archive name unique per export window.
func (e *TimeClockExecutor) rangeSuffix() string {
	from := strings.ReplaceAll(e.params.DateFrom, ".", "")
	to := strings.ReplaceAll(e.params.DateTo, ".", "")
	if from == "" && to == "" {
		return time.Now().Format("20060102")
	}
	return fmt.Sprintf("%s_%s", from, to)
}

func (e *TimeClockExecutor) Teardown() {}
