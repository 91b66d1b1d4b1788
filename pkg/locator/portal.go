package locator

// Shared chains for the supplier portal: login form, session popups,
// loading overlay and logout. Workflow-specific chains live next to
// their executor.

// Login form.
var (
	UsernameField = NewChain("username field",
		Attr("name", "Username"),
		IDPattern("textfield-", "-inputEl"),
	)

	PasswordField = NewChain("password field",
		Attr("name", "Password"),
		Attr("type", "password"),
	)

	LoginButton = NewChain("login button",
		XPath("//span[text()='Accedi' and contains(@class, 'x-btn-inner')]"),
		Role("button", "Accedi"),
		PartialText("Accedi"),
	)
)

// Popups. The portal shows a "session already active" confirmation when
// the previous session was not closed cleanly, and generic "Attenzione"
// acknowledgement windows after some submits.
var (
	SessionActiveYes = NewChain("session-active confirmation",
		XPath("//span[text()='Si' and contains(@class, 'x-btn-inner')]/ancestor::a[contains(@class, 'x-btn')]"),
		Role("button", "Si"),
		Text("Sì"),
	)

	PopupOK = NewChain("acknowledgement OK",
		XPath("//span[text()='OK' and contains(@class, 'x-btn-inner')]"),
		Role("button", "OK"),
		Text("OK"),
	)

	AttentionWindowYes = NewChain("attention-window confirmation",
		XPath("//div[contains(@class, 'x-window')]//span[normalize-space(text())='Si' and contains(@class, 'x-btn-inner')]"),
		Role("button", "Si"),
	)
)

// OverlayMask is the transient ExtJS loading indicator. Interaction is
// unreliable while it is visible.
var OverlayMask = NewChain("loading overlay",
	XPath("//div[contains(@class, 'x-mask-msg') or contains(@class, 'x-mask')][not(contains(@style,'display: none'))]"),
)

// PostLoginMarker confirms an authenticated session: the user settings
// button only renders after login.
var PostLoginMarker = NewChain("post-login marker",
	IDPattern("", "user-info-settings-btnEl"),
	XPath("//span[contains(@id, 'user-info-settings-btnEl') or contains(@class, 'x-btn-icon-el-default-toolbar-small-settings')]"),
)

// Logout path: settings button then the Esci menu entry.
var (
	SettingsButton = NewChain("settings button",
		XPath("//span[contains(@id, 'user-info-settings-btnEl') or contains(@class, 'x-btn-icon-el-default-toolbar-small-settings')]"),
		Role("button", "Impostazioni"),
	)

	LogoutEntry = NewChain("logout entry",
		XPath("//a[contains(@class, 'x-menu-item-link')][.//span[normalize-space(text())='Esci']]"),
		PartialText("Esci"),
	)
)

// SupplierDropdownArrow opens the supplier combo box shared by the
// report pages.
var SupplierDropdownArrow = NewChain("supplier dropdown arrow",
	XPath("//div[starts-with(@id, 'generic_refresh_combo_box-') and contains(@id, '-trigger-picker') and contains(@class, 'x-form-arrow-trigger')]"),
	IDPattern("generic_refresh_combo_box-", "-trigger-picker"),
)

// SupplierOption matches one entry of the opened supplier combo list.
func SupplierOption(supplier string) Chain {
	return NewChain("supplier option "+supplier,
		XPath("//li[normalize-space(text())='"+supplier+"']"),
		XPath("//li[contains(text(), '"+supplier+"')]"),
		PartialText(supplier),
	)
}

// MenuEntry builds the generic fallback chain for a named menu item,
// in decreasing order of precision.
func MenuEntry(label string) Chain {
	return NewChain("menu "+label,
		Text(label),
		XPath("//span[contains(@id, 'generic_menu_button-') and contains(@id, '-btnEl')][.//span[text()='"+label+"']]"),
		Role("button", label),
		PartialText(label),
		XPath("//*[contains(@class, 'x-menu-item')][contains(text(), '"+label+"')]"),
	)
}

// SearchButton is the "Cerca" submit shared by the report pages.
var SearchButton = NewChain("search button",
	XPath("//a[contains(@class, 'x-btn') and @role='button'][.//span[normalize-space(text())='Cerca' and contains(@class, 'x-btn-inner')]]"),
	Role("button", "Cerca"),
	Text("Cerca"),
)
