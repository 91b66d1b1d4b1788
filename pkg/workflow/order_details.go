package workflow

import (
	"fmt"

	"github.com/gianky00/isab-timesheet/pkg/browser"
	"github.com/gianky00/isab-timesheet/pkg/download"
	"github.com/gianky00/isab-timesheet/pkg/locator"
	"github.com/gianky00/isab-timesheet/pkg/report"
	"github.com/gianky00/isab-timesheet/pkg/wait"
)

// Report → Oda page chains.
var (
	odNumberField = locator.NewChain("order number field",
		locator.Attr("name", "NumeroOdA"),
		locator.XPath("//label[contains(text(), 'Numero OdA')]/following::input[1]"),
	)

	odContractField = locator.NewChain("contract field",
		locator.Attr("name", "NumeroContratto"),
	)

	odDateToField = locator.NewChain("creation date to field",
		locator.Attr("name", "DataCreazioneA"),
	)

	odServiceDetailCheckbox = locator.NewChain("service detail checkbox",
		locator.Attr("name", "GetItemServiceInfo"),
	)

	odExportButton = locator.NewChain("export excel entry",
		locator.PartialText("Esporta in Excel"),
	)
)

// OrderDetailsExecutor exports the detail sheet of each order from the
// Report → Oda section. An item with an empty order number is valid:
// it exports the general order list for the filter window instead.
type OrderDetailsExecutor struct {
	ctrl   *browser.Controller
	sinks  report.Sinks
	params Params
	rec    *download.Reconciler
}

// NewOrderDetailsExecutor builds the detail-extraction bot.
func NewOrderDetailsExecutor(ctrl *browser.Controller, params Params, sinks report.Sinks) *OrderDetailsExecutor {
	return &OrderDetailsExecutor{
		ctrl:   ctrl,
		sinks:  sinks,
		params: params,
		rec:    newReconciler(params, sinks),
	}
}

func (e *OrderDetailsExecutor) Name() string { return "dettagli-oda" }

// Validate accepts every item: the empty order number is the
// general-list export.
func (e *OrderDetailsExecutor) Validate(*Item) *Outcome { return nil }

// Setup navigates to the section and selects the supplier. The tab
// state resets per item, so only the supplier is shared.
func (e *OrderDetailsExecutor) Setup() error {
	nav := e.ctrl.Navigator()
	e.sinks.Logf("Navigazione Report -> Oda...")

	if err := nav.MenuPath(locator.MenuEntry("Report"), locator.MenuEntry("Oda")); err != nil {
		return err
	}
	if e.params.Supplier != "" {
		if err := selectSupplier(nav, e.params.Supplier); err != nil {
			return fmt.Errorf("supplier filter: %w", err)
		}
	}
	return nil
}

func (e *OrderDetailsExecutor) Process(item *Item) Outcome {
	nav := e.ctrl.Navigator()

	if err := e.ctrl.EnsureLoggedIn(); err != nil {
		return Fatal(err)
	}

	contract := item.Contract
	if contract == "" {
		contract = e.params.Contract
	}
	dateTo := item.Date
	if dateTo == "" {
		dateTo = e.params.DateTo
	}

	if err := nav.FillField(odNumberField, item.OrderNumber); err != nil {
		return fieldOutcome(err)
	}
	if dateTo != "" {
		if err := nav.FillField(odDateToField, dateTo); err != nil {
			return fieldOutcome(err)
		}
	}
	if contract != "" {
		if err := nav.FillField(odContractField, contract); err != nil {
			return fieldOutcome(err)
		}
	}
	// Include the per-service detail rows in the export.
	if nav.IsPresent(odServiceDetailCheckbox) {
		if err := nav.Click(odServiceDetailCheckbox); err != nil {
			e.sinks.Logf("Attenzione: flag dettaglio prestazioni non impostato")
		}
	}

	if err := nav.Click(locator.SearchButton); err != nil {
		return Failure(CodeNoMatch, "search: "+err.Error())
	}
	if err := nav.RequireOverlayCleared(wait.OverlayTimeout); err != nil {
		return Failure(CodeNoMatch, "results did not load: "+err.Error())
	}

	primary := item.OrderNumber
	if primary == "" {
		primary = "elenco-oda"
	}
	return exportAndReconcile(e.ctrl, e.rec, odExportButton, primary, contract)
}

func (e *OrderDetailsExecutor) Teardown() {}
