package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/itms/portal/internal/autosave"
	"github.com/itms/portal/internal/form"
	"github.com/itms/portal/internal/ui"
	"github.com/itms/portal/internal/wizard"
)

// View renders the model.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderBody())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.notice != "" {
		sections = append(sections, m.renderNotice())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("IT PORTAL")
	step := ui.StepStyle.Render(" " + m.step.Title())

	var user string
	if m.user != nil {
		user = ui.DimStyle.Render(m.user.FullName)
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(step) - lipgloss.Width(user)
	if gap < 1 {
		return title + step
	}
	return title + step + strings.Repeat(" ", gap) + user
}

func (m Model) renderBody() string {
	switch m.step {
	case wizard.StepLogin:
		return m.renderLogin()
	case wizard.StepDashboard:
		return m.renderDashboard()
	case wizard.StepSiteSelection:
		return m.renderSites()
	case wizard.StepCounterSelection:
		return m.renderCounters()
	case wizard.StepCounterVerification:
		return m.renderVerification()
	case wizard.StepCounterReport:
		return m.renderReport()
	}
	return ""
}

func (m Model) renderLogin() string {
	label := func(s string, focus int) string {
		if m.loginFocus == focus {
			return ui.SelectedStyle.Render(padRight(s, 10))
		}
		return padRight(s, 10)
	}
	box := "[ ]"
	if m.remember {
		box = "[x]"
	}
	lines := []string{
		ui.SectionTitleStyle.Render("Sign in to continue"),
		"",
		label("Email", focusEmail) + m.email.View(),
		label("Password", focusPassword) + m.password.View(),
		label("", focusRemember) + label(box+" Remember me", focusRemember),
	}
	if m.busy {
		lines = append(lines, "", ui.SavingStyle.Render("Signing in..."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDashboard() string {
	name := "there"
	if m.user != nil {
		name = m.user.FullName
	}
	lines := []string{
		ui.SectionTitleStyle.Render("Welcome, " + name),
		"",
		ui.InfoCardStyle.Render("Counter Report\n" + ui.DimStyle.Render("Check a counter's hardware and report its condition")),
		"",
		ui.ButtonActiveStyle.Render("New Counter Report"),
	}
	return strings.Join(lines, "\n")
}

// renderList renders rows with the cursor and selection markers.
func (m Model) renderList(rows []string, selected int) string {
	var lines []string
	for i, row := range rows {
		marker := "  "
		if i == selected {
			marker = "● "
		}
		row = truncateToWidth(marker+row, m.width-2)
		if i == m.cursor {
			lines = append(lines, ui.SelectedStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSites() string {
	if m.loading {
		return ui.DimStyle.Render("Loading sites...")
	}
	sites := m.sites.Sites()
	if len(sites) == 0 {
		return ui.DimStyle.Render("No sites available.")
	}
	rows := make([]string, len(sites))
	selected := -1
	sel, ok := m.sites.Selected()
	for i, s := range sites {
		rows[i] = fmt.Sprintf("%s  %s  %s", s.SiteCode, s.SiteName, ui.DimStyle.Render(s.CompanyName))
		if ok && s.SiteID == sel.SiteID {
			selected = i
		}
	}
	body := ui.SectionTitleStyle.Render("Select the site you are visiting") + "\n\n" + m.renderList(rows, selected)
	if m.busy {
		body += "\n\n" + ui.SavingStyle.Render("Checking site...")
	}
	return body
}

func (m Model) renderCounters() string {
	if m.loading {
		return ui.DimStyle.Render("Loading counters...")
	}
	var heading string
	if site, err := m.counters.Site(); err == nil && site != nil {
		heading = ui.DimStyle.Render("Site: "+site.SiteCode+" "+site.SiteName) + "\n"
	}
	counters := m.counters.Counters()
	rows := make([]string, len(counters))
	selected := -1
	sel, ok := m.counters.Selected()
	for i, c := range counters {
		rows[i] = fmt.Sprintf("%s  %s", c.CounterNumber, c.CounterName)
		if c.LocationDetails != "" {
			rows[i] += "  " + ui.DimStyle.Render(c.LocationDetails)
		}
		if ok && c.CounterID == sel.CounterID {
			selected = i
		}
	}
	return heading + ui.SectionTitleStyle.Render("Select a counter") + "\n\n" + m.renderList(rows, selected)
}

func (m Model) renderVerification() string {
	if m.loading {
		return ui.DimStyle.Render("Loading counter details...")
	}
	var lines []string
	if site, counter, err := m.verify.Selection(); err == nil {
		lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("Site: %s  Counter: %s %s",
			site.SiteCode, counter.CounterNumber, counter.CounterName)))
	}
	lines = append(lines, ui.SectionTitleStyle.Render("Registered devices"), "")

	devices := m.verify.Devices()
	if len(devices) == 0 {
		lines = append(lines, ui.DimStyle.Render("No devices registered for this counter."))
	}
	for _, d := range devices {
		serial := d.SerialNumber
		if serial == "" {
			serial = "N/A"
		}
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			padRight(d.DeviceType, 10), padRight(d.DeviceName, 16), ui.DimStyle.Render("S/N "+serial)))
	}
	lines = append(lines, "")

	if m.editing == editChange {
		lines = append(lines, "Required changes:", m.input.View())
	} else if m.busy {
		lines = append(lines, ui.SavingStyle.Render("Submitting change request..."))
	}

	button := ui.ButtonStyle
	if m.verify.CanContinue() {
		button = ui.ButtonActiveStyle
	}
	lines = append(lines, "", button.Render("Continue to Report"))
	return strings.Join(lines, "\n")
}

func (m Model) renderReport() string {
	if m.loading {
		return ui.DimStyle.Render("Starting report...")
	}

	var (
		fields    []form.Field
		sections  []form.Section
		disabled  = map[string]bool{}
		progress  float64
		label     string
		valid     bool
		mediaDone = m.report.Media()
	)
	m.report.Inspect(func(f *form.Form) {
		fields = f.Fields()
		sections = f.Checklist().Sections
		for _, s := range sections {
			disabled[s.ID] = f.SectionDisabled(s.ID)
		}
		progress = f.Progress()
		label = f.SubmitLabel()
		valid = f.Valid()
	})

	site, counter := m.report.Selection()
	head := []string{
		ui.DimStyle.Render(fmt.Sprintf("Site: %s  Counter: %s %s", site.SiteCode, counter.CounterNumber, counter.CounterName)),
		m.progress.ViewAs(progress) + "  " + m.renderSaveState(),
	}

	// Lay out every section, remembering which line the cursor is on.
	var lines []string
	cursorLine := 0
	i := 0
	for _, s := range sections {
		title := ui.SectionTitleStyle.Render(s.Title)
		if disabled[s.ID] {
			title = ui.DisabledStyle.Render(s.Title + " (counter off)")
		}
		lines = append(lines, "", title)
		for range s.Fields {
			if i == m.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, m.renderField(fields[i], i == m.cursor, mediaDone))
			if m.editing == fields[i].Name {
				lines = append(lines, "    "+m.input.View())
			}
			i++
		}
	}

	button := ui.ButtonStyle
	if valid && !m.busy {
		button = ui.ButtonActiveStyle
	}
	if m.submitted {
		label = "Submitted"
	}
	foot := []string{"", button.Render(label)}

	// Keep the cursor in view when the form is taller than the screen.
	avail := m.height - len(head) - len(foot) - 5
	if avail > 0 && len(lines) > avail {
		start := max(0, min(cursorLine-avail/2, len(lines)-avail))
		lines = lines[start : start+avail]
	}

	out := append(head, lines...)
	return strings.Join(append(out, foot...), "\n")
}

func (m Model) renderSaveState() string {
	switch {
	case m.submitted:
		return ui.SuccessTextStyle.Render("Submitted")
	case m.report.Autosave().State() == autosave.Saving:
		return ui.SavingStyle.Render("Saving...")
	case !m.lastSaved.IsZero():
		return ui.DimStyle.Render("Saved " + m.lastSaved.Format("15:04:05"))
	}
	return ""
}

func (m Model) renderField(f form.Field, current bool, media map[string]string) string {
	if f.Disabled {
		return "  " + ui.DisabledStyle.Render(padRight(f.Label, 32)+"disabled")
	}
	name := f.Label
	if f.Required {
		name += ui.RequiredStyle.Render(" *")
	}
	name = padRight(name, 32)

	var value string
	switch {
	case f.Kind == form.KindToggle:
		value = renderRadio(f.Value, "Yes", "No")
	case f.Kind == form.KindCheck:
		value = renderRadio(f.Value, "Pass", "Fail")
	case f.Kind == form.KindSelect:
		value = ui.DimStyle.Render("< Select >")
		if f.Value != "" {
			value = "< " + f.Value + " >"
		}
	case f.Kind == form.KindMedia:
		value = ui.DimStyle.Render("no file")
		if _, ok := media[f.Name]; ok {
			value = ui.PassStyle.Render("uploaded")
		}
	default:
		value = ui.DimStyle.Render("-")
		if f.Value != "" {
			value = truncateToWidth(f.Value, max(10, m.width-40))
		}
	}

	if current {
		return ui.SelectedStyle.Render("> ") + name + value
	}
	return "  " + name + value
}

func renderRadio(value, yes, no string) string {
	switch value {
	case form.Pass:
		return ui.PassStyle.Render("(•) "+yes) + "  ( ) " + no
	case form.Fail:
		return "( ) " + yes + "  " + ui.FailStyle.Render("(•) "+no)
	}
	return "( ) " + yes + "  ( ) " + no
}

func (m Model) renderNotice() string {
	if m.noticeErr {
		return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.notice)
	}
	return ui.SuccessStyle.Render("✓ ") + ui.SuccessTextStyle.Render(m.notice)
}

func key(k, desc string) string {
	return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
}

func (m Model) renderFooter() string {
	var parts []string

	switch {
	case m.editing != "":
		parts = append(parts, key("Enter", "Save"), key("Esc", "Cancel"))
		return strings.Join(parts, "  ")

	case m.step == wizard.StepLogin:
		parts = append(parts, key("Tab", "Next field"), key("Space", "Remember me"), key("Enter", "Sign in"))
		parts = append(parts, key("ctrl+c", "Quit"))
		return strings.Join(parts, "  ")

	case m.step == wizard.StepDashboard:
		parts = append(parts, key("n", "New report"), key("l", "Log out"))

	case m.step == wizard.StepSiteSelection, m.step == wizard.StepCounterSelection:
		parts = append(parts, key("j/k", "Nav"), key("Enter", "Continue"), key("Esc", "Back"))

	case m.step == wizard.StepCounterVerification:
		parts = append(parts, key("v", "Verified"), key("r", "Request changes"), key("Enter", "Continue"), key("Esc", "Back"))

	case m.step == wizard.StepCounterReport:
		parts = append(parts, key("j/k", "Nav"), key("y/n", "Pass/Fail"), key("←→", "Choose"), key("Enter", "Edit"),
			key("s", "Save draft"), key("x", "Submit"), key("Esc", "Back"))
	}

	parts = append(parts, key("q", "Quit"))
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}
