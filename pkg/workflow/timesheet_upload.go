package workflow

import (
	"fmt"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// Gestione Timesheet page chains.
var (
	upOrderField = locator.NewChain("order number field",
		locator.XPath("//label[contains(text(), 'Numero OdA')]/following::input[1]"),
		locator.Attr("name", "NumeroOda"),
	)

	upExtractButton = locator.NewChain("extract order button",
		locator.PartialText("Estrai OdA"),
		locator.Role("button", "Estrai OdA"),
	)

	upAttachButton = locator.NewChain("attach timesheet button",
		locator.PartialText("Allega Timesheet"),
		locator.Role("button", "Allega"),
		locator.PartialText("Allega"),
	)

	upTaxCodeField = locator.NewChain("tax code field",
		locator.Attr("name", "CodiceFiscale"),
		locator.XPath("//label[contains(text(), 'Codice Fiscale')]/following::input[1]"),
	)

	upDateField = locator.NewChain("work date field",
		locator.Attr("name", "DataTimesheet"),
		locator.XPath("//label[contains(text(), 'Data')]/following::input[1]"),
	)

	upConfirmButton = locator.NewChain("confirm button",
		locator.XPath("//a[contains(@class, 'x-btn') and @role='button'][.//span[normalize-space(text())='Conferma' and contains(@class, 'x-btn-inner')]]"),
		locator.Role("button", "Conferma"),
		locator.Text("Conferma"),
	)
)

// upMatchRows matches result-grid rows of an extracted order.
func upMatchRows(taxCode string) string {
	return "xpath=//div[contains(@class, 'x-grid-item-container')]//table//td[contains(., '" + taxCode + "')]"
}

// upOrderRow confirms an extracted order rendered its grid.
func upOrderRow(orderNumber string) locator.Chain {
	return locator.NewChain("extracted order row "+orderNumber,
		locator.XPath("//div[contains(@class, 'x-grid-item-container')]//table[.//td[contains(., '"+orderNumber+"')]]"),
		locator.PartialText(orderNumber),
	)
}

// TimesheetUploadExecutor loads timesheet rows into the Gestione
// Timesheet section. Per-item flow: extract the order when it changed,
// verify it rendered, attach, fill the row's fields, search the match,
// branch on zero/one/many, confirm.
type TimesheetUploadExecutor struct {
	ctrl   *browser.Controller
	sinks  report.Sinks
	params Params

	// lastOrder implements context reuse: the order extraction is the
	// expensive lookup, so consecutive rows of one order run it once.
	lastOrder string
}

// NewTimesheetUploadExecutor builds the upload bot.
func NewTimesheetUploadExecutor(ctrl *browser.Controller, params Params, sinks report.Sinks) *TimesheetUploadExecutor {
	return &TimesheetUploadExecutor{ctrl: ctrl, sinks: sinks, params: params}
}

func (e *TimesheetUploadExecutor) Name() string { return "carico-ts" }

func (e *TimesheetUploadExecutor) Validate(item *Item) *Outcome {
	if early := requireIdentifier(item); early != nil {
		return early
	}
	if item.TaxCode == "" {
		o := Failure(CodeMissingIdentifier, "tax code is empty")
		return &o
	}
	return nil
}

// Setup navigates to Gestione Timesheet and selects the supplier once.
func (e *TimesheetUploadExecutor) Setup() error {
	nav := e.ctrl.Navigator()
	e.sinks.Logf("Navigazione Gestione Timesheet...")

	if err := nav.MenuPath(locator.MenuEntry("Gestione Timesheet")); err != nil {
		return err
	}
	if e.params.Supplier != "" {
		if err := selectSupplier(nav, e.params.Supplier); err != nil {
			return fmt.Errorf("supplier filter: %w", err)
		}
	}
	return nil
}

func (e *TimesheetUploadExecutor) Process(item *Item) Outcome {
	nav := e.ctrl.Navigator()

	if err := e.ctrl.EnsureLoggedIn(); err != nil {
		return Fatal(err)
	}

	if item.OrderNumber != e.lastOrder {
		if outcome, ok := e.extractOrder(nav, item); !ok {
			e.lastOrder = ""
			return outcome
		}
		e.lastOrder = item.OrderNumber
	}

	if err := nav.Click(upAttachButton); err != nil {
		return Failure(CodeConfirmFailed, "attach: "+err.Error())
	}
	nav.WaitForOverlayCleared(wait.OverlayTimeout)

	if err := nav.FillField(upTaxCodeField, item.TaxCode); err != nil {
		return fieldOutcome(err)
	}
	if item.Date != "" {
		if err := nav.FillField(upDateField, item.Date); err != nil {
			return fieldOutcome(err)
		}
	}

	if err := nav.Click(locator.SearchButton); err != nil {
		return Failure(CodeNoMatch, "search: "+err.Error())
	}
	// Hard wait: the zero/one/many branch below reads the grid the
	// search populates.
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeNoMatch, "results did not load: "+err.Error())
	}

	matches, err := nav.Page().Locator(upMatchRows(item.TaxCode)).Count()
	if err != nil {
		return Failure(CodeNoMatch, "match lookup: "+err.Error())
	}
	switch {
	case matches == 0:
		return Failure(CodeNoMatch, "no row matches "+item.TaxCode)
	case matches > 1:
		return Failure(CodeAmbiguousMatch, fmt.Sprintf("%d rows match %s", matches, item.TaxCode))
	}

	return e.confirm(nav, item)
}

// extractOrder runs the expensive lookup: fill the order number,
// trigger the extraction, verify the grid rendered the order.
func (e *TimesheetUploadExecutor) extractOrder(nav *browser.Navigator, item *Item) (Outcome, bool) {
	if err := nav.FillField(upOrderField, item.OrderNumber); err != nil {
		return fieldOutcome(err), false
	}
	if err := nav.Click(upExtractButton); err != nil {
		return Failure(CodeNotFound, "extract: "+err.Error()), false
	}
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeNotFound, "extraction did not complete: "+err.Error()), false
	}

	if !nav.IsPresent(upOrderRow(item.OrderNumber)) {
		return Failure(CodeNotFound, "order "+item.OrderNumber+" not in results"), false
	}
	return Outcome{}, true
}

func (e *TimesheetUploadExecutor) confirm(nav *browser.Navigator, item *Item) Outcome {
	if err := nav.Click(upConfirmButton); err != nil {
		return Failure(CodeConfirmFailed, err.Error())
	}

	// The portal asks for acknowledgement before committing.
	if nav.ClickIfPresent(locator.AttentionWindowYes) {
		e.sinks.Logf("Conferma finestra Attenzione")
	}
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeConfirmFailed, "confirmation did not complete: "+err.Error())
	}

	return Success(CodeConfirmed, item.ID()+" caricato")
}

func (e *TimesheetUploadExecutor) Teardown() {}

// fieldOutcome maps a navigator field error to its per-item code. An
// unresolvable field and a fill that errored are the same failure from
// the batch's point of view.
func fieldOutcome(err error) Outcome {
	return Failure(CodeFieldNotFillable, err.Error())
}
