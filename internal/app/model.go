package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/auth"
	"github.com/itms/portal/internal/autosave"
	"github.com/itms/portal/internal/form"
	"github.com/itms/portal/internal/session"
	"github.com/itms/portal/internal/wizard"

	tea "github.com/charmbracelet/bubbletea"
)

// Notices shown in the notification bar.
const (
	noticeLoginFailed     = "Login failed"
	noticeSessionExpired  = "Your session has expired. Please sign in again."
	noticeSitesFailed     = "Failed to load available sites."
	noticeSiteRequired    = "Please select a site before continuing."
	noticeNoCounters      = "No counters found at the selected site. Please contact your administrator."
	noticeSiteFailed      = "Failed to validate site. Please try again."
	noticeCountersFailed  = "Failed to load counters."
	noticeCounterRequired = "Please select a counter before continuing."
	noticeDetailsFailed   = "Failed to load counter details."
	noticeVerified        = "Counter information verified as correct."
	noticeVerifyFirst     = "Verify the counter information or request changes first."
	noticeChangeRequested = "Change request submitted successfully. You can continue with the report while the changes are being processed."
	noticeChangeFailed    = "Failed to submit change request"
	noticeStartFailed     = "Failed to start report."
	noticeDraftLoaded     = "Previous draft loaded successfully."
	noticeDraftSaved      = "Draft saved successfully"
	noticeDraftFailed     = "Failed to save draft"
	noticeTooLarge        = "File size must be less than 50MB"
	noticeBadType         = "Only JPEG, PNG images and MP4, WebM videos are allowed"
	noticeUploadFailed    = "Failed to upload media file"
	noticeIncomplete      = "Complete the required fields before submitting."
	noticeSectionOff      = "This section is disabled while the counter is off."
	noticeSubmitted       = "Report submitted successfully"
	noticeSubmitFailed    = "Failed to submit report. Please try again."
)

// editChange marks the change request description as the field being edited.
const editChange = "\x00change"

// Login form focus positions.
const (
	focusEmail = iota
	focusPassword
	focusRemember
	loginFocusCount
)

// Client is the portal API as used by the pages. *api.Client satisfies it.
type Client interface {
	wizard.API
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResult, error)
	Profile(ctx context.Context) (api.User, error)
}

// Deps are the collaborators the model drives.
type Deps struct {
	Client    Client
	Tokens    *auth.TokenStore
	Session   *session.Store
	Checklist *form.Checklist

	AutosaveInterval time.Duration
	RedirectDelay    time.Duration
	NoticeTimeout    time.Duration
	Logger           *slog.Logger
}

// Model is the root bubbletea model for the portal client.
type Model struct {
	deps   Deps
	ctx    context.Context
	nav    *wizard.Navigator
	logger *slog.Logger

	// Navigation. page changes on every page switch so that results
	// started from a page that has been left can be told apart.
	step       wizard.Step
	page       int
	afterLogin wizard.Step
	user       *api.User

	// Request state of the current page
	loading bool
	busy    bool

	// Login
	email      textinput.Model
	password   textinput.Model
	remember   bool
	loginFocus int

	// Wizard pages
	sites    *wizard.SiteSelection
	counters *wizard.CounterSelection
	verify   *wizard.CounterVerification
	report   *wizard.Report
	cursor   int

	// Text entry on the verification and report pages
	input   textinput.Model
	editing string

	progress  progress.Model
	lastSaved time.Time
	submitted bool

	// Notification bar
	notice    string
	noticeErr bool
	noticeSeq int

	// UI state
	width  int
	height int
}

// New creates a Model showing the dashboard, or the login page when no
// credential is held.
func New(deps Deps) Model {
	if deps.AutosaveInterval <= 0 {
		deps.AutosaveInterval = autosave.DefaultInterval
	}
	if deps.RedirectDelay <= 0 {
		deps.RedirectDelay = wizard.DefaultRedirectDelay
	}
	if deps.NoticeTimeout <= 0 {
		deps.NoticeTimeout = 5 * time.Second
	}
	if deps.Checklist == nil {
		deps.Checklist = form.DefaultChecklist()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	input := textinput.New()
	input.CharLimit = 2000

	m := Model{
		deps:       deps,
		ctx:        context.Background(),
		nav:        wizard.NewNavigator(deps.Session, deps.Tokens, deps.Logger),
		logger:     deps.Logger,
		afterLogin: wizard.StepDashboard,
		email:      email,
		password:   password,
		input:      input,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		remember:   deps.Tokens.RememberMe(),
	}
	m.step, _ = m.nav.Guard(wizard.StepDashboard)
	if m.step == wizard.StepLogin {
		m.email.Focus()
	}
	return m
}

// Step returns the page being shown.
func (m Model) Step() wizard.Step { return m.step }

// Init returns the initial command for the first page.
func (m Model) Init() tea.Cmd {
	if m.step == wizard.StepLogin {
		return textinput.Blink
	}
	return profileCmd(m.ctx, m.deps.Client)
}

// loginCmd signs in.
func loginCmd(ctx context.Context, c Client, page int, email, password string, remember bool) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Login(ctx, api.LoginRequest{Email: email, Password: password, RememberMe: remember})
		return LoginDoneMsg{Page: page, Token: res.Token, Remember: remember, Err: err}
	}
}

// profileCmd loads the signed-in user.
func profileCmd(ctx context.Context, c Client) tea.Cmd {
	return func() tea.Msg {
		u, err := c.Profile(ctx)
		return ProfileLoadedMsg{User: u, Err: err}
	}
}

func fetchSitesCmd(ctx context.Context, p *wizard.SiteSelection, page int) tea.Cmd {
	return func() tea.Msg {
		sites, err := p.Fetch(ctx)
		return SitesLoadedMsg{Page: page, Sites: sites, Err: err}
	}
}

func siteContinueCmd(ctx context.Context, p *wizard.SiteSelection, site api.Site, page int) tea.Cmd {
	return func() tea.Msg {
		return SiteContinueMsg{Page: page, Err: p.Continue(ctx, site)}
	}
}

func fetchCountersCmd(ctx context.Context, p *wizard.CounterSelection, page int) tea.Cmd {
	return func() tea.Msg {
		counters, err := p.Fetch(ctx)
		return CountersLoadedMsg{Page: page, Counters: counters, Err: err}
	}
}

func fetchCounterInfoCmd(ctx context.Context, p *wizard.CounterVerification, page int) tea.Cmd {
	return func() tea.Msg {
		info, err := p.Fetch(ctx)
		return CounterInfoMsg{Page: page, Info: info, Err: err}
	}
}

func requestChangeCmd(ctx context.Context, p *wizard.CounterVerification, page int, userID, description string) tea.Cmd {
	return func() tea.Msg {
		return ChangeRequestedMsg{Page: page, Err: p.RequestChanges(ctx, userID, description)}
	}
}

func startReportCmd(ctx context.Context, r *wizard.Report, page int) tea.Cmd {
	return func() tea.Msg {
		res, err := r.Start(ctx)
		return ReportStartedMsg{Page: page, Result: res, Err: err}
	}
}

// autosaveTickCmd fires the next autosave tick.
func autosaveTickCmd(interval time.Duration, page int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return AutosaveTickMsg{Page: page}
	})
}

// autosaveCmd runs one automatic save through the report's scheduler, which
// drops the tick if a save is already in flight and logs failures.
func autosaveCmd(ctx context.Context, r *wizard.Report, page int) tea.Cmd {
	return func() tea.Msg {
		ran, err := r.Autosave().Tick(ctx)
		return AutosaveDoneMsg{Page: page, Saved: ran && err == nil, Err: err}
	}
}

func saveDraftCmd(ctx context.Context, r *wizard.Report, page int) tea.Cmd {
	return func() tea.Msg {
		return DraftSavedMsg{Page: page, Err: r.SaveDraft(ctx, true)}
	}
}

// uploadCmd opens the file at path and uploads it for checkType.
func uploadCmd(ctx context.Context, r *wizard.Report, page int, checkType, path string) tea.Cmd {
	return func() tea.Msg {
		media, f, err := api.OpenMedia(path)
		if err != nil {
			return MediaUploadedMsg{Page: page, CheckType: checkType, Err: err}
		}
		defer f.Close()
		id, err := r.Upload(ctx, checkType, media)
		return MediaUploadedMsg{Page: page, CheckType: checkType, MediaID: id, Image: media.IsImage(), Err: err}
	}
}

func submitCmd(ctx context.Context, r *wizard.Report, page int) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Page: page, Err: r.Submit(ctx)}
	}
}

// redirectCmd moves to step after delay.
func redirectCmd(delay time.Duration, page int, step wizard.Step) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RedirectMsg{Page: page, Step: step}
	})
}

// notify shows a notice that clears itself after the notice timeout.
func (m *Model) notify(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	seq := m.noticeSeq
	return tea.Tick(m.deps.NoticeTimeout, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Seq: seq}
	})
}

// withNotice returns m showing a notice.
func (m Model) withNotice(text string, isErr bool) (Model, tea.Cmd) {
	cmd := m.notify(text, isErr)
	return m, cmd
}

// failed reports an API error. An expired credential sends the user to the
// login page and returns them to the current page afterwards.
func (m Model) failed(err error, notice string) (Model, tea.Cmd) {
	if api.IsUnauthorized(err) {
		m.afterLogin = m.step
		return m.signOut(noticeSessionExpired)
	}
	m.logger.Warn(notice, "step", m.step.String(), "error", err)
	return m.withNotice(notice, true)
}

// signOut forgets the credential and shows the login page.
func (m Model) signOut(notice string) (Model, tea.Cmd) {
	if err := m.deps.Tokens.Clear(); err != nil {
		m.logger.Warn("clear token", "error", err)
	}
	m.user = nil
	m, cmd := m.goTo(wizard.StepLogin)
	if notice == "" {
		return m, cmd
	}
	expire := m.notify(notice, true)
	return m, tea.Batch(cmd, expire)
}

// leave tears down the current page. Leaving the report stops its autosave.
func (m *Model) leave() {
	if m.report != nil {
		m.report.Close()
		m.report = nil
	}
	m.editing = ""
	m.input.Blur()
	m.input.SetValue("")
	m.email.Blur()
	m.password.Blur()
}

// goTo switches to step, or to wherever the navigator redirects it.
func (m Model) goTo(step wizard.Step) (Model, tea.Cmd) {
	target, ok := m.nav.Guard(step)
	if !ok && target == wizard.StepLogin && step != wizard.StepLogin {
		m.afterLogin = step
	}

	m.leave()
	m.step = target
	m.page++
	m.cursor = 0
	m.loading = false
	m.busy = false
	m.submitted = false
	m.lastSaved = time.Time{}

	switch target {
	case wizard.StepLogin:
		m.loginFocus = focusEmail
		m.remember = m.deps.Tokens.RememberMe()
		cmd := m.email.Focus()
		return m, cmd

	case wizard.StepDashboard:
		if m.user == nil {
			return m, profileCmd(m.ctx, m.deps.Client)
		}
		return m, nil

	case wizard.StepSiteSelection:
		m.sites = wizard.NewSiteSelection(m.deps.Client, m.deps.Session)
		m.loading = true
		return m, fetchSitesCmd(m.ctx, m.sites, m.page)

	case wizard.StepCounterSelection:
		m.counters = wizard.NewCounterSelection(m.deps.Client, m.deps.Session)
		m.loading = true
		return m, fetchCountersCmd(m.ctx, m.counters, m.page)

	case wizard.StepCounterVerification:
		m.verify = wizard.NewCounterVerification(m.deps.Client, m.deps.Session)
		m.loading = true
		return m, fetchCounterInfoCmd(m.ctx, m.verify, m.page)

	case wizard.StepCounterReport:
		m.report = wizard.NewReport(m.deps.Client, m.deps.Session, m.deps.Checklist, m.logger)
		m.loading = true
		return m, startReportCmd(m.ctx, m.report, m.page)
	}
	return m, nil
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(60, msg.Width-30))
		return m, nil

	case LoginDoneMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		if msg.Err != nil {
			notice := noticeLoginFailed
			var se *api.StatusError
			if errors.As(msg.Err, &se) && se.Message != "" {
				notice = se.Message
			}
			m.logger.Info("login failed", "error", msg.Err)
			return m.withNotice(notice, true)
		}
		if err := m.deps.Tokens.Save(msg.Token, msg.Remember); err != nil {
			m.logger.Warn("store token", "error", err)
		}
		m.password.SetValue("")
		next := m.afterLogin
		m.afterLogin = wizard.StepDashboard
		var cmd tea.Cmd
		m, cmd = m.goTo(next)
		if next != wizard.StepDashboard {
			cmd = tea.Batch(cmd, profileCmd(m.ctx, m.deps.Client))
		}
		return m, cmd

	case ProfileLoadedMsg:
		if msg.Err != nil {
			if api.IsUnauthorized(msg.Err) && m.step != wizard.StepLogin {
				m.afterLogin = m.step
				return m.signOut(noticeSessionExpired)
			}
			m.logger.Warn("load profile", "error", msg.Err)
			return m, nil
		}
		u := msg.User
		m.user = &u
		return m, nil

	case SitesLoadedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			return m.failed(msg.Err, noticeSitesFailed)
		}
		m.sites.SetSites(msg.Sites)
		m.cursor = 0
		return m, nil

	case SiteContinueMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		switch {
		case errors.Is(msg.Err, wizard.ErrNoCounters):
			return m.withNotice(noticeNoCounters, true)
		case msg.Err != nil:
			return m.failed(msg.Err, noticeSiteFailed)
		}
		return m.goTo(wizard.Next(m.step))

	case CountersLoadedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			return m.failed(msg.Err, noticeCountersFailed)
		}
		m.counters.SetCounters(msg.Counters)
		m.cursor = 0
		return m, nil

	case CounterInfoMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			return m.failed(msg.Err, noticeDetailsFailed)
		}
		m.verify.SetDevices(msg.Info.Devices)
		return m, nil

	case ChangeRequestedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		if errors.Is(msg.Err, wizard.ErrEmptyDescription) {
			return m.withNotice("Describe the required changes.", true)
		}
		if msg.Err != nil {
			return m.failed(msg.Err, noticeChangeFailed)
		}
		m.verify.Unlock()
		return m.withNotice(noticeChangeRequested, false)

	case ReportStartedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			return m.failed(msg.Err, noticeStartFailed)
		}
		cmd := autosaveTickCmd(m.deps.AutosaveInterval, m.page)
		if msg.Result.Resumed {
			cmd = tea.Batch(cmd, m.notify(noticeDraftLoaded, false))
		}
		return m, cmd

	case AutosaveTickMsg:
		if msg.Page != m.page || m.report == nil || m.report.Autosave().Stopped() {
			return m, nil
		}
		return m, tea.Batch(
			autosaveCmd(m.ctx, m.report, m.page),
			autosaveTickCmd(m.deps.AutosaveInterval, m.page),
		)

	case AutosaveDoneMsg:
		if msg.Page != m.page {
			return m, nil
		}
		// Autosave failures stay quiet unless the credential has expired.
		if api.IsUnauthorized(msg.Err) {
			m.afterLogin = m.step
			return m.signOut(noticeSessionExpired)
		}
		if msg.Saved {
			m.lastSaved = time.Now()
		}
		return m, nil

	case DraftSavedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		if msg.Err != nil {
			return m.failed(msg.Err, noticeDraftFailed)
		}
		m.lastSaved = time.Now()
		return m.withNotice(noticeDraftSaved, false)

	case MediaUploadedMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		switch {
		case errors.Is(msg.Err, api.ErrMediaTooLarge):
			return m.withNotice(noticeTooLarge, true)
		case errors.Is(msg.Err, api.ErrMediaType):
			return m.withNotice(noticeBadType, true)
		case msg.Err != nil:
			return m.failed(msg.Err, noticeUploadFailed)
		}
		kind := "Video"
		if msg.Image {
			kind = "Image"
		}
		return m.withNotice(kind+" uploaded successfully", false)

	case SubmitDoneMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.busy = false
		switch {
		case errors.Is(msg.Err, wizard.ErrIncomplete):
			return m.withNotice(noticeIncomplete, true)
		case msg.Err != nil:
			return m.failed(msg.Err, noticeSubmitFailed)
		}
		m.submitted = true
		expire := m.notify(noticeSubmitted, false)
		return m, tea.Batch(expire, redirectCmd(m.deps.RedirectDelay, m.page, wizard.StepDashboard))

	case RedirectMsg:
		if msg.Page != m.page {
			return m, nil
		}
		return m.goTo(msg.Step)

	case ClearNoticeMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

// updateInputs forwards other messages, such as cursor blinks, to the
// focused text input.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.editing != "":
		m.input, cmd = m.input.Update(msg)
	case m.step == wizard.StepLogin && m.loginFocus == focusEmail:
		m.email, cmd = m.email.Update(msg)
	case m.step == wizard.StepLogin && m.loginFocus == focusPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		m.leave()
		return m, tea.Quit
	}
	if m.editing != "" {
		return m.handleInputKey(msg)
	}
	if m.step == wizard.StepLogin {
		return m.handleLoginKey(msg)
	}
	if key == KeyQuit {
		m.leave()
		return m, tea.Quit
	}

	switch m.step {
	case wizard.StepDashboard:
		return m.handleDashboardKey(key)
	case wizard.StepSiteSelection:
		return m.handleSiteKey(key)
	case wizard.StepCounterSelection:
		return m.handleCounterKey(key)
	case wizard.StepCounterVerification:
		return m.handleVerifyKey(key)
	case wizard.StepCounterReport:
		return m.handleReportKey(key)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyTab, KeyDown:
		return m.focusLogin((m.loginFocus + 1) % loginFocusCount)

	case KeyShiftTab, KeyUp:
		return m.focusLogin((m.loginFocus + loginFocusCount - 1) % loginFocusCount)

	case KeySpace:
		if m.loginFocus == focusRemember {
			m.remember = !m.remember
			return m, nil
		}

	case KeyEnter:
		if m.loginFocus == focusEmail {
			return m.focusLogin(focusPassword)
		}
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, loginCmd(m.ctx, m.deps.Client, m.page, m.email.Value(), m.password.Value(), m.remember)
	}
	return m.updateInputs(msg)
}

func (m Model) focusLogin(focus int) (Model, tea.Cmd) {
	m.loginFocus = focus
	m.email.Blur()
	m.password.Blur()
	var cmd tea.Cmd
	switch focus {
	case focusEmail:
		cmd = m.email.Focus()
	case focusPassword:
		cmd = m.password.Focus()
	}
	return m, cmd
}

func (m Model) handleDashboardKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyNew, KeyEnter:
		return m.goTo(wizard.StepSiteSelection)
	case KeyLogout:
		if err := m.deps.Session.Clear(); err != nil {
			m.logger.Warn("clear session", "error", err)
		}
		m.afterLogin = wizard.StepDashboard
		return m.signOut("")
	}
	return m, nil
}

// moveCursor moves the list cursor by delta within n entries.
func (m *Model) moveCursor(key string, n int) bool {
	switch key {
	case KeyUp, KeyK:
		if m.cursor > 0 {
			m.cursor--
		}
	case KeyDown, KeyJ:
		if m.cursor < n-1 {
			m.cursor++
		}
	default:
		return false
	}
	return true
}

func (m Model) handleSiteKey(key string) (tea.Model, tea.Cmd) {
	if m.moveCursor(key, len(m.sites.Sites())) {
		m.sites.Select(m.cursor)
		return m, nil
	}
	switch key {
	case KeyEsc:
		return m.goTo(wizard.Back(m.step))
	case KeyEnter:
		if m.loading || m.busy {
			return m, nil
		}
		site, ok := m.sites.Selected()
		if !ok {
			return m.withNotice(noticeSiteRequired, true)
		}
		m.busy = true
		return m, siteContinueCmd(m.ctx, m.sites, site, m.page)
	}
	return m, nil
}

func (m Model) handleCounterKey(key string) (tea.Model, tea.Cmd) {
	if m.moveCursor(key, len(m.counters.Counters())) {
		m.counters.Select(m.cursor)
		return m, nil
	}
	switch key {
	case KeyEsc:
		return m.goTo(wizard.Back(m.step))
	case KeyEnter:
		if m.loading {
			return m, nil
		}
		err := m.counters.Continue()
		switch {
		case errors.Is(err, wizard.ErrNoSelection):
			return m.withNotice(noticeCounterRequired, true)
		case err != nil:
			m.logger.Warn("store counter", "error", err)
			return m.withNotice(err.Error(), true)
		}
		return m.goTo(wizard.Next(m.step))
	}
	return m, nil
}

func (m Model) handleVerifyKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyEsc:
		return m.goTo(wizard.Back(m.step))
	case KeyVerify:
		m.verify.Verify()
		return m.withNotice(noticeVerified, false)
	case KeyRequest:
		if m.busy {
			return m, nil
		}
		m.editing = editChange
		m.input.Placeholder = "Describe the required changes"
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd
	case KeyEnter:
		if err := m.verify.Continue(); err != nil {
			return m.withNotice(noticeVerifyFirst, true)
		}
		return m.goTo(wizard.Next(m.step))
	}
	return m, nil
}

func (m Model) reportFields() []form.Field {
	var fields []form.Field
	m.report.Inspect(func(f *form.Form) { fields = f.Fields() })
	return fields
}

func (m Model) handleReportKey(key string) (tea.Model, tea.Cmd) {
	if key == KeyEsc {
		return m.goTo(wizard.Back(m.step))
	}
	if m.loading || m.submitted {
		return m, nil
	}
	fields := m.reportFields()
	if m.moveCursor(key, len(fields)) || len(fields) == 0 {
		return m, nil
	}
	// The form is read-only while a submit or upload is in flight.
	if m.busy {
		return m, nil
	}
	fld := fields[min(m.cursor, len(fields)-1)]

	switch key {
	case KeySaveDraft:
		return m, saveDraftCmd(m.ctx, m.report, m.page)

	case KeySubmit:
		m.busy = true
		return m, submitCmd(m.ctx, m.report, m.page)

	case KeyPass, KeyFail, KeySpace, KeyLeft, KeyRight:
		value, ok := nextValue(fld, key)
		if !ok {
			return m, nil
		}
		return m.setField(fld.Name, value)

	case KeyEnter:
		switch fld.Kind {
		case form.KindText, form.KindNote, form.KindMedia:
			if fld.Disabled {
				return m.withNotice(noticeSectionOff, true)
			}
			m.editing = fld.Name
			m.input.Placeholder = fld.Label
			m.input.SetValue(fld.Value)
			if fld.Kind == form.KindMedia {
				m.input.Placeholder = "Path to a JPEG, PNG, MP4 or WebM file"
				m.input.SetValue("")
			}
			cmd := m.input.Focus()
			return m, cmd
		default:
			value, ok := nextValue(fld, KeySpace)
			if !ok {
				return m, nil
			}
			return m.setField(fld.Name, value)
		}
	}
	return m, nil
}

func (m Model) setField(name, value string) (Model, tea.Cmd) {
	err := m.report.SetValue(name, value)
	switch {
	case errors.Is(err, form.ErrDisabled):
		return m.withNotice(noticeSectionOff, true)
	case err != nil:
		return m.withNotice(err.Error(), true)
	}
	return m, nil
}

// nextValue returns the value a key press gives a choice field.
func nextValue(fld form.Field, key string) (string, bool) {
	switch {
	case fld.Kind.IsRadio():
		switch key {
		case KeyPass:
			return form.Pass, true
		case KeyFail:
			return form.Fail, true
		}
		if fld.Value == form.Pass {
			return form.Fail, true
		}
		return form.Pass, true

	case fld.Kind == form.KindSelect:
		i := -1
		for j, o := range fld.Options {
			if o == fld.Value {
				i = j
			}
		}
		n := len(fld.Options)
		switch key {
		case KeyLeft:
			if i <= 0 {
				return fld.Options[n-1], true
			}
			return fld.Options[i-1], true
		case KeyRight, KeySpace:
			return fld.Options[(i+1)%n], true
		}
	}
	return "", false
}

// handleInputKey handles keys while a text input is focused.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.editing = ""
		m.input.Blur()
		return m, nil

	case KeyEnter:
		name, value := m.editing, m.input.Value()
		m.editing = ""
		m.input.Blur()
		m.input.SetValue("")

		if name == editChange {
			userID := ""
			if m.user != nil {
				userID = m.user.UserID
			}
			m.busy = true
			return m, requestChangeCmd(m.ctx, m.verify, m.page, userID, value)
		}
		if m.report == nil {
			return m, nil
		}
		fld, ok := m.fieldByName(name)
		if !ok {
			return m, nil
		}
		if fld.Kind == form.KindMedia {
			m.busy = true
			return m, uploadCmd(m.ctx, m.report, m.page, name, value)
		}
		return m.setField(name, value)
	}
	return m.updateInputs(msg)
}

func (m Model) fieldByName(name string) (form.Field, bool) {
	var fld form.Field
	var ok bool
	m.report.Inspect(func(f *form.Form) { fld, ok = f.Field(name) })
	return fld, ok
}
