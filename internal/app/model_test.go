package app

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/api/apitest"
	"github.com/itms/portal/internal/auth"
	"github.com/itms/portal/internal/db"
	"github.com/itms/portal/internal/form"
	"github.com/itms/portal/internal/session"
	"github.com/itms/portal/internal/wizard"
)

type testEnv struct {
	fake    *apitest.Fake
	tokens  *auth.TokenStore
	session *session.Store
	deps    Deps
}

func newTestEnv(t *testing.T, signedIn bool) *testEnv {
	t.Helper()
	fake, base := apitest.NewServer(t)
	store, err := db.Open(db.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenStore(store)
	if err != nil {
		t.Fatalf("token store: %v", err)
	}
	if signedIn {
		if err := tokens.Save(fake.IssueToken(), false); err != nil {
			t.Fatalf("save token: %v", err)
		}
	}
	sess := session.NewStore(store)
	return &testEnv{
		fake:    fake,
		tokens:  tokens,
		session: sess,
		deps: Deps{
			Client:           api.New(base, tokens),
			Tokens:           tokens,
			Session:          sess,
			Checklist:        form.DefaultChecklist(),
			AutosaveInterval: time.Hour,
			RedirectDelay:    10 * time.Millisecond,
			NoticeTimeout:    time.Hour,
		},
	}
}

func (e *testEnv) selectCounter(t *testing.T) {
	t.Helper()
	if err := e.session.SetSite(session.Site{SiteID: "s-1", SiteCode: "LDN1", SiteName: "London Bridge"}); err != nil {
		t.Fatalf("set site: %v", err)
	}
	if err := e.session.SetCounter(session.Counter{CounterID: "c-1", CounterNumber: "01", CounterName: "Front Till"}); err != nil {
		t.Fatalf("set counter: %v", err)
	}
}

// model returns a sized Model with its initial command settled.
func (e *testEnv) model(t *testing.T) Model {
	t.Helper()
	m := New(e.deps)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 60})
	return settle(t, m, m.Init())
}

// openReport returns a model on the report page with the report started.
func (e *testEnv) openReport(t *testing.T) Model {
	t.Helper()
	e.selectCounter(t)
	m := e.model(t)
	m, cmd := m.goTo(wizard.StepCounterReport)
	m = settle(t, m, cmd)
	if m.Step() != wizard.StepCounterReport || m.report.ReportID() == "" {
		t.Fatalf("report not started: step=%v notice=%q", m.Step(), m.notice)
	}
	return m
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

// run executes cmd, following batches, and returns the messages produced
// within a short wait. Timers that have not fired by then are dropped.
func run(cmd tea.Cmd) []tea.Msg {
	ch := make(chan tea.Msg, 64)
	var wg sync.WaitGroup
	var start func(tea.Cmd)
	start = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, b := range batch {
					start(b)
				}
				return
			}
			ch <- msg
		}()
	}
	start(cmd)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
	}

	var msgs []tea.Msg
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// settle feeds the results of cmd back into the model until no request is
// left in flight.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; i < 10 && cmd != nil; i++ {
		var next []tea.Cmd
		for _, msg := range run(cmd) {
			if !follow(msg) {
				continue
			}
			var c tea.Cmd
			m, c = applyUpdate(m, msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func follow(msg tea.Msg) bool {
	switch msg.(type) {
	case LoginDoneMsg, ProfileLoadedMsg, SitesLoadedMsg, SiteContinueMsg,
		CountersLoadedMsg, CounterInfoMsg, ChangeRequestedMsg, ReportStartedMsg,
		AutosaveDoneMsg, DraftSavedMsg, MediaUploadedMsg, SubmitDoneMsg, RedirectMsg:
		return true
	}
	return false
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case KeyEnter:
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case KeyEsc:
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case KeyTab:
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case KeySpace:
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case KeyLeft:
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case KeyRight:
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var cmd tea.Cmd
		m, cmd = applyUpdate(m, msg)
		m = settle(t, m, cmd)
	}
	return m
}

func fill(t *testing.T, m Model) {
	t.Helper()
	values := map[string]string{
		"isOn":             form.Pass,
		"printerCheck":     form.Pass,
		"scannerCheck":     form.Pass,
		"cashDrawerCheck":  form.Pass,
		"displayCheck":     form.Pass,
		"networkCheck":     form.Pass,
		"overallCondition": "Good",
	}
	for name, v := range values {
		if err := m.report.SetValue(name, v); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
}

func TestNewModel(t *testing.T) {
	env := newTestEnv(t, false)
	m := New(env.deps)
	if m.Step() != wizard.StepLogin {
		t.Errorf("step = %v, want login without a credential", m.Step())
	}

	env = newTestEnv(t, true)
	m = env.model(t)
	if m.Step() != wizard.StepDashboard {
		t.Errorf("step = %v, want dashboard", m.Step())
	}
	if m.user == nil || m.user.FullName != "Field Tech" {
		t.Errorf("user = %+v, want profile loaded", m.user)
	}
}

func TestLogin_Failure(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.model(t)

	m.email.SetValue(apitest.Email)
	m.password.SetValue("wrong")
	m.loginFocus = focusPassword
	m = press(t, m, KeyEnter)

	if m.Step() != wizard.StepLogin {
		t.Errorf("step = %v, want login", m.Step())
	}
	if m.notice != "Invalid email or password" || !m.noticeErr {
		t.Errorf("notice = %q (err=%v), want server message", m.notice, m.noticeErr)
	}
	if m.busy {
		t.Error("should not be busy after the attempt finished")
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.model(t)

	m = press(t, m, KeyTab, KeyTab, KeySpace)
	if !m.remember {
		t.Fatal("space on the checkbox should tick remember me")
	}
	m.email.SetValue(apitest.Email)
	m.password.SetValue(apitest.Password)
	m = press(t, m, KeyEnter)

	if m.Step() != wizard.StepDashboard {
		t.Fatalf("step = %v, want dashboard (notice %q)", m.Step(), m.notice)
	}
	if _, err := env.tokens.Token(); err != nil {
		t.Errorf("token not stored: %v", err)
	}
	if !env.tokens.RememberMe() {
		t.Error("remember me should be stored")
	}
	if m.password.Value() != "" {
		t.Error("password should be cleared after login")
	}
	if m.user == nil {
		t.Error("profile should be loaded after login")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, true)
	env.selectCounter(t)
	m := env.model(t)

	m = press(t, m, KeyLogout)
	if m.Step() != wizard.StepLogin {
		t.Errorf("step = %v, want login", m.Step())
	}
	if _, err := env.tokens.Token(); err == nil {
		t.Error("token should be cleared")
	}
	if site, _ := env.session.Site(); site != nil {
		t.Error("session should be cleared")
	}
}

func TestUnauthorizedReturnsAfterLogin(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.model(t)

	env.fake.RevokeTokens()
	m = press(t, m, KeyNew)

	if m.Step() != wizard.StepLogin {
		t.Fatalf("step = %v, want login after 401", m.Step())
	}
	if m.notice != noticeSessionExpired {
		t.Errorf("notice = %q, want %q", m.notice, noticeSessionExpired)
	}
	if _, err := env.tokens.Token(); err == nil {
		t.Error("rejected token should be forgotten")
	}

	m.email.SetValue(apitest.Email)
	m.password.SetValue(apitest.Password)
	m.loginFocus = focusPassword
	m = press(t, m, KeyEnter)

	if m.Step() != wizard.StepSiteSelection {
		t.Errorf("step = %v, want back on site selection", m.Step())
	}
	if got := len(m.sites.Sites()); got != 2 {
		t.Errorf("sites = %d, want 2", got)
	}
}

func TestWizardFlow(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.model(t)

	// Site selection
	m = press(t, m, KeyNew)
	if m.Step() != wizard.StepSiteSelection {
		t.Fatalf("step = %v, want site selection", m.Step())
	}
	m = press(t, m, KeyEnter)
	if m.notice != noticeSiteRequired {
		t.Errorf("notice = %q, want %q", m.notice, noticeSiteRequired)
	}
	m = press(t, m, KeyJ, KeyK, KeyEnter)
	if m.Step() != wizard.StepCounterSelection {
		t.Fatalf("step = %v, want counter selection (notice %q)", m.Step(), m.notice)
	}
	if site, _ := env.session.Site(); site == nil || site.SiteID != "s-1" {
		t.Errorf("session site = %+v, want s-1", site)
	}

	// Counter selection
	if got := len(m.counters.Counters()); got != 2 {
		t.Fatalf("counters = %d, want 2", got)
	}
	m = press(t, m, KeyEnter)
	if m.notice != noticeCounterRequired {
		t.Errorf("notice = %q, want %q", m.notice, noticeCounterRequired)
	}
	m = press(t, m, KeyJ, KeyK, KeyEnter)
	if m.Step() != wizard.StepCounterVerification {
		t.Fatalf("step = %v, want verification", m.Step())
	}

	// Verification
	if got := len(m.verify.Devices()); got != 2 {
		t.Errorf("devices = %d, want 2", got)
	}
	m = press(t, m, KeyEnter)
	if m.Step() != wizard.StepCounterVerification || m.notice != noticeVerifyFirst {
		t.Errorf("continue before verifying: step=%v notice=%q", m.Step(), m.notice)
	}
	m = press(t, m, KeyVerify)
	if m.notice != noticeVerified {
		t.Errorf("notice = %q, want %q", m.notice, noticeVerified)
	}
	m = press(t, m, KeyEnter)
	if m.Step() != wizard.StepCounterReport {
		t.Fatalf("step = %v, want report", m.Step())
	}
	reportID := m.report.ReportID()
	if reportID == "" {
		t.Fatal("report should be started")
	}

	// Report
	fill(t, m)
	m = press(t, m, KeySubmit)

	if _, ok := env.fake.Submission(reportID); !ok {
		t.Fatalf("report not submitted (notice %q)", m.notice)
	}
	if m.Step() != wizard.StepDashboard {
		t.Errorf("step = %v, want dashboard after the redirect", m.Step())
	}
	if site, _ := env.session.Site(); site != nil {
		t.Error("session should be cleared after submit")
	}
	if m.notice != noticeSubmitted {
		t.Errorf("notice = %q, want %q", m.notice, noticeSubmitted)
	}
}

func TestSingleSiteIsSelected(t *testing.T) {
	env := newTestEnv(t, true)
	env.fake.SetSites([]api.Site{{SiteID: "s-1", SiteCode: "LDN1", SiteName: "London Bridge"}})
	m := env.model(t)

	m = press(t, m, KeyNew, KeyEnter)
	if m.Step() != wizard.StepCounterSelection {
		t.Errorf("step = %v, want counter selection without picking", m.Step())
	}
}

func TestSiteWithoutCounters(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.model(t)

	m = press(t, m, KeyNew, KeyJ, KeyEnter)
	if m.Step() != wizard.StepSiteSelection {
		t.Errorf("step = %v, want to stay on site selection", m.Step())
	}
	if m.notice != noticeNoCounters {
		t.Errorf("notice = %q, want %q", m.notice, noticeNoCounters)
	}
}

func TestSitesLoadFailure(t *testing.T) {
	env := newTestEnv(t, true)
	env.fake.FailNext("GET /sites", 500, 1)
	m := env.model(t)

	m = press(t, m, KeyNew)
	if m.notice != noticeSitesFailed || !m.noticeErr {
		t.Errorf("notice = %q, want %q", m.notice, noticeSitesFailed)
	}
	if m.loading {
		t.Error("loading should end on failure")
	}
}

func TestStaleResultIgnored(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.model(t)

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	stale := m.page
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Step() != wizard.StepDashboard {
		t.Fatalf("step = %v, want dashboard", m.Step())
	}

	m, cmd := applyUpdate(m, SitesLoadedMsg{Page: stale, Err: api.ErrNotFound})
	if cmd != nil || m.notice != "" {
		t.Errorf("stale result should be dropped, got notice %q", m.notice)
	}
	m, _ = applyUpdate(m, SiteContinueMsg{Page: stale})
	if m.Step() != wizard.StepDashboard {
		t.Errorf("stale continue moved to %v", m.Step())
	}
}

func TestChangeRequest(t *testing.T) {
	env := newTestEnv(t, true)
	env.selectCounter(t)
	m := env.model(t)
	m, cmd := m.goTo(wizard.StepCounterVerification)
	m = settle(t, m, cmd)

	m = press(t, m, KeyRequest)
	if m.editing != editChange {
		t.Fatal("r should open the change description")
	}
	m = press(t, m, "Printer replaced", KeyEnter)

	if m.notice != noticeChangeRequested {
		t.Errorf("notice = %q, want %q", m.notice, noticeChangeRequested)
	}
	if !m.verify.CanContinue() {
		t.Error("a filed change request should unlock the report")
	}
	reqs := env.fake.ChangeRequests()
	if len(reqs) != 1 || reqs[0].RequestedBy != "u-1" || reqs[0].ChangeDescription != "Printer replaced" {
		t.Errorf("change requests = %+v", reqs)
	}
}

func TestReportKeys(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	m = press(t, m, KeyPass, KeyJ, KeyFail)
	value := func(name string) string {
		var v string
		m.report.Inspect(func(f *form.Form) { v = f.Value(name) })
		return v
	}
	if got := value("isOn"); got != form.Pass {
		t.Errorf("isOn = %q, want %q", got, form.Pass)
	}
	if got := value("printerCheck"); got != form.Fail {
		t.Errorf("printerCheck = %q, want %q", got, form.Fail)
	}

	fld, _ := m.fieldByName("printerCheckNote")
	if !fld.Required {
		t.Error("a failed check should require its note")
	}

	// note is the next field
	m = press(t, m, KeyJ, KeyEnter, "paper jam", KeyEnter)
	if got := value("printerCheckNote"); got != "paper jam" {
		t.Errorf("note = %q, want %q", got, "paper jam")
	}

	view := m.View()
	if !strings.Contains(view, form.LabelIncomplete) {
		t.Error("submit should read as incomplete")
	}
}

func TestReportPowerOff(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	m = press(t, m, KeyFail, KeyJ, KeyPass)
	if m.notice != noticeSectionOff {
		t.Errorf("notice = %q, want %q", m.notice, noticeSectionOff)
	}
}

func TestReportSelectCycles(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	fields := m.reportFields()
	for i, f := range fields {
		if f.Name == "overallCondition" {
			m.cursor = i
		}
	}
	m = press(t, m, KeyRight)
	if fld, _ := m.fieldByName("overallCondition"); fld.Value != fld.Options[0] {
		t.Errorf("value = %q, want first option", fld.Value)
	}
	m = press(t, m, KeyLeft)
	if fld, _ := m.fieldByName("overallCondition"); fld.Value != fld.Options[len(fld.Options)-1] {
		t.Errorf("value = %q, want last option", fld.Value)
	}
}

func TestAutosaveTick(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	if err := m.report.SetValue("isOn", form.Pass); err != nil {
		t.Fatal(err)
	}
	m, cmd := applyUpdate(m, AutosaveTickMsg{Page: m.page})
	if cmd == nil {
		t.Fatal("tick should start a save")
	}
	m = settle(t, m, cmd)

	draft, ok := env.fake.Draft(m.report.ReportID())
	if !ok || draft.FormData["isOn"] != form.Pass {
		t.Errorf("draft = %+v, want isOn saved", draft)
	}
	if m.lastSaved.IsZero() {
		t.Error("last saved time should be set")
	}

	if _, cmd := applyUpdate(m, AutosaveTickMsg{Page: m.page - 1}); cmd != nil {
		t.Error("tick for a left page should stop")
	}
}

func TestAutosaveFailureIsQuiet(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	env.fake.FailNext("POST /reports/counter/draft", 502, 1)
	m, cmd := applyUpdate(m, AutosaveTickMsg{Page: m.page})
	m = settle(t, m, cmd)

	if m.Step() != wizard.StepCounterReport {
		t.Errorf("step = %v, want to stay on the report", m.Step())
	}
	if m.notice != "" {
		t.Errorf("notice = %q, want none for a failed autosave", m.notice)
	}
	if !m.lastSaved.IsZero() {
		t.Error("a failed autosave should not count as saved")
	}
}

func TestAutosaveUnauthorizedSignsOut(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	env.fake.RevokeTokens()
	m, cmd := applyUpdate(m, AutosaveTickMsg{Page: m.page})
	m = settle(t, m, cmd)

	if m.Step() != wizard.StepLogin {
		t.Fatalf("step = %v, want login after 401", m.Step())
	}
	if m.notice != noticeSessionExpired {
		t.Errorf("notice = %q, want %q", m.notice, noticeSessionExpired)
	}
	if m.afterLogin != wizard.StepCounterReport {
		t.Errorf("afterLogin = %v, want the report", m.afterLogin)
	}
	if _, err := env.tokens.Token(); err == nil {
		t.Error("rejected token should be forgotten")
	}
}

func TestReportReadOnlyWhileBusy(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	m.busy = true
	m = press(t, m, KeyPass, KeySaveDraft)
	var v string
	m.report.Inspect(func(f *form.Form) { v = f.Value("isOn") })
	if v != "" {
		t.Errorf("isOn = %q, want no edit while busy", v)
	}
	if n := env.fake.CountCalls("POST /reports/counter/draft"); n != 0 {
		t.Errorf("draft saves = %d, want none while busy", n)
	}

	m = press(t, m, KeyJ)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want to move while busy", m.cursor)
	}
	m = press(t, m, KeyEsc)
	if m.Step() != wizard.StepCounterVerification {
		t.Errorf("step = %v, want esc to leave while busy", m.Step())
	}
}

func TestSaveDraftKey(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	m = press(t, m, KeySaveDraft)
	if m.notice != noticeDraftSaved || m.noticeErr {
		t.Errorf("notice = %q, want %q", m.notice, noticeDraftSaved)
	}

	env.fake.FailNext("POST /reports/counter/draft", 500, 1)
	m = press(t, m, KeySaveDraft)
	if m.notice != noticeDraftFailed || !m.noticeErr {
		t.Errorf("notice = %q, want %q", m.notice, noticeDraftFailed)
	}
}

func TestResumeNotice(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)
	if err := m.report.SetValue("isOn", form.Pass); err != nil {
		t.Fatal(err)
	}
	m = press(t, m, KeySaveDraft)

	m, cmd := m.goTo(wizard.StepCounterReport)
	m = settle(t, m, cmd)
	if m.notice != noticeDraftLoaded {
		t.Errorf("notice = %q, want %q", m.notice, noticeDraftLoaded)
	}
	if fld, _ := m.fieldByName("isOn"); fld.Value != form.Pass {
		t.Errorf("isOn = %q, want draft value", fld.Value)
	}
}

func TestSubmitFailure(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)
	fill(t, m)

	env.fake.FailNext("POST /reports/counter/"+m.report.ReportID()+"/submit", 500, 1)
	m = press(t, m, KeySubmit)

	if m.notice != noticeSubmitFailed {
		t.Errorf("notice = %q, want %q", m.notice, noticeSubmitFailed)
	}
	if m.Step() != wizard.StepCounterReport || m.submitted {
		t.Error("a failed submit should stay on the report")
	}
}

func TestSubmitIncomplete(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	m = press(t, m, KeySubmit)
	if m.notice != noticeIncomplete {
		t.Errorf("notice = %q, want %q", m.notice, noticeIncomplete)
	}
	if n := env.fake.CountCalls("POST /reports/counter/draft"); n != 0 {
		t.Errorf("draft saves = %d, want none for an incomplete form", n)
	}
}

func TestMediaNotices(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	tests := []struct {
		msg  MediaUploadedMsg
		want string
	}{
		{MediaUploadedMsg{Err: api.ErrMediaTooLarge}, noticeTooLarge},
		{MediaUploadedMsg{Err: api.ErrMediaType}, noticeBadType},
		{MediaUploadedMsg{Err: &api.StatusError{StatusCode: 500}}, noticeUploadFailed},
		{MediaUploadedMsg{MediaID: "m-1", Image: true}, "Image uploaded successfully"},
		{MediaUploadedMsg{MediaID: "m-2"}, "Video uploaded successfully"},
	}
	for _, tt := range tests {
		tt.msg.Page = m.page
		m, _ = applyUpdate(m, tt.msg)
		if m.notice != tt.want {
			t.Errorf("notice = %q, want %q", m.notice, tt.want)
		}
	}
}

func TestClearNotice(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.model(t)

	m.notify("first", false)
	old := m.noticeSeq
	m.notify("second", false)

	m, _ = applyUpdate(m, ClearNoticeMsg{Seq: old})
	if m.notice != "second" {
		t.Errorf("notice = %q, an older timer should not clear a newer notice", m.notice)
	}
	m, _ = applyUpdate(m, ClearNoticeMsg{Seq: m.noticeSeq})
	if m.notice != "" {
		t.Errorf("notice = %q, want cleared", m.notice)
	}
}

func TestQuitKeys(t *testing.T) {
	env := newTestEnv(t, false)
	m := env.model(t)

	// q is typed into the email field on the login page
	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if m.email.Value() != "q" {
		t.Errorf("email = %q, want q typed", m.email.Value())
	}
	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Error("q should not quit while typing")
		}
	}

	_, cmd = applyUpdate(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestViewRendersWithSize(t *testing.T) {
	env := newTestEnv(t, true)
	m := env.openReport(t)

	view := m.View()
	if view == "Initializing..." {
		t.Error("view should render after WindowSizeMsg")
	}
	for _, want := range []string{"IT PORTAL", "Counter Report Checklist", "LDN1", "Front Till"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewWithoutSize(t *testing.T) {
	env := newTestEnv(t, false)
	m := New(env.deps)
	if m.View() != "Initializing..." {
		t.Error("view without size should show initializing")
	}
}
