package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/autosave"
	"github.com/itms/portal/internal/form"
	"github.com/itms/portal/internal/session"
)

// DefaultRedirectDelay is how long the success notice stays up after submit.
const DefaultRedirectDelay = 2 * time.Second

var (
	ErrNoReport   = errors.New("no report started")
	ErrIncomplete = errors.New("complete the required fields first")
	ErrSubmitted  = errors.New("report already submitted")
)

// StartResult describes the report Start opened.
type StartResult struct {
	ReportID string
	// Resumed is set when an earlier draft was loaded into the form.
	Resumed bool
}

// Report backs the last wizard step. It owns the form, the media map and
// the autosave scheduler, and is safe for concurrent use: the UI edits the
// form while autosave snapshots it from another goroutine.
type Report struct {
	api     API
	session *session.Store
	logger  *slog.Logger
	sched   *autosave.Scheduler

	mu        sync.Mutex
	form      *form.Form
	site      session.Site
	counter   session.Counter
	reportID  string
	media     map[string]string
	submitted bool
}

// NewReport returns a report controller over a fresh form built from list.
// The caller drives autosave by calling Autosave().Tick on its own timer.
func NewReport(c API, s *session.Store, list *form.Checklist, logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Report{
		api:     c,
		session: s,
		logger:  logger,
		form:    form.New(list),
		media:   make(map[string]string),
	}
	r.sched = autosave.New(func(ctx context.Context) error {
		return r.SaveDraft(ctx, false)
	}, logger)
	return r
}

// Autosave returns the report's scheduler.
func (r *Report) Autosave() *autosave.Scheduler { return r.sched }

// Start opens the report for the session's site and counter. When the
// server reports an unfinished draft it is loaded into the form; a draft
// that cannot be loaded is logged and the form starts empty.
func (r *Report) Start(ctx context.Context) (StartResult, error) {
	site, err := r.session.Site()
	if err != nil {
		return StartResult{}, err
	}
	counter, err := r.session.Counter()
	if err != nil {
		return StartResult{}, err
	}
	if site == nil || counter == nil {
		return StartResult{}, ErrNoSelection
	}

	rs, err := r.api.StartReport(ctx, site.SiteID, counter.CounterID)
	if err != nil {
		return StartResult{}, err
	}

	r.mu.Lock()
	r.site, r.counter, r.reportID = *site, *counter, rs.ReportID
	r.mu.Unlock()

	res := StartResult{ReportID: rs.ReportID}
	if rs.ExistingDraftID == "" {
		return res, nil
	}
	draft, err := r.api.LoadDraft(ctx, rs.ExistingDraftID)
	if err != nil {
		r.logger.Warn("load existing draft", "draft_id", rs.ExistingDraftID, "error", err)
		return res, nil
	}
	if draft.FormData == nil {
		return res, nil
	}

	r.mu.Lock()
	r.form.Populate(draft.FormData)
	if draft.MediaFiles != nil {
		r.media = maps.Clone(draft.MediaFiles)
	}
	r.mu.Unlock()
	res.Resumed = true
	return res, nil
}

// ReportID returns the open report's id, empty before Start.
func (r *Report) ReportID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reportID
}

// Selection returns the site and counter the report is for.
func (r *Report) Selection() (session.Site, session.Counter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.site, r.counter
}

// SetValue edits a form field.
func (r *Report) SetValue(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form.SetValue(name, value)
}

// Inspect calls fn with the form under the report's lock. fn must not keep
// the form or edit it.
func (r *Report) Inspect(fn func(f *form.Form)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.form)
}

// Media returns a copy of the uploaded media ids by check.
func (r *Report) Media() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.media)
}

// Snapshot captures the current form data and media.
func (r *Report) Snapshot() (api.DraftSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reportID == "" {
		return api.DraftSnapshot{}, ErrNoReport
	}
	return r.snapshotLocked(), nil
}

// snapshotLocked requires r.mu held and reportID set.
func (r *Report) snapshotLocked() api.DraftSnapshot {
	return api.DraftSnapshot{
		ReportID:   r.reportID,
		SiteID:     r.site.SiteID,
		CounterID:  r.counter.CounterID,
		FormData:   r.form.Values(),
		MediaFiles: maps.Clone(r.media),
	}
}

// SaveDraft saves the current snapshot. Manual saves do not go through the
// autosave scheduler and may overlap an automatic one.
func (r *Report) SaveDraft(ctx context.Context, manual bool) error {
	if r.isSubmitted() {
		return ErrSubmitted
	}
	snap, err := r.Snapshot()
	if err != nil {
		return err
	}
	if err := r.api.SaveDraft(ctx, snap); err != nil {
		return err
	}
	r.logger.Debug("draft saved", "report_id", snap.ReportID, "manual", manual)
	return nil
}

// Upload validates and uploads m for checkType and records the returned id,
// replacing any earlier upload for the same check.
func (r *Report) Upload(ctx context.Context, checkType string, m api.Media) (string, error) {
	if err := api.ValidateMedia(m); err != nil {
		return "", err
	}
	r.mu.Lock()
	reportID, counterID := r.reportID, r.counter.CounterID
	r.mu.Unlock()
	if reportID == "" {
		return "", ErrNoReport
	}

	id, err := r.api.UploadMedia(ctx, reportID, counterID, checkType, m)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.media[checkType] = id
	r.mu.Unlock()
	return id, nil
}

// Submit saves the current state and then submits that same state, so the
// final draft and the submitted payload are identical even if the form is
// edited while the save is in flight. On success autosave stops and the
// session selection is cleared; the caller redirects to the dashboard.
func (r *Report) Submit(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.reportID == "":
		r.mu.Unlock()
		return ErrNoReport
	case r.submitted:
		r.mu.Unlock()
		return ErrSubmitted
	case !r.form.Valid():
		r.mu.Unlock()
		return ErrIncomplete
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.api.SaveDraft(ctx, snap); err != nil {
		return fmt.Errorf("save before submit: %w", err)
	}
	if err := r.api.SubmitReport(ctx, snap.ReportID, snap.FormData, snap.MediaFiles); err != nil {
		return err
	}

	r.mu.Lock()
	r.submitted = true
	r.mu.Unlock()
	r.sched.Stop()
	if err := r.session.Clear(); err != nil {
		r.logger.Warn("clear session after submit", "error", err)
	}
	r.logger.Info("report submitted", "report_id", snap.ReportID)
	return nil
}

// Close stops autosave without submitting.
func (r *Report) Close() { r.sched.Stop() }

func (r *Report) isSubmitted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted
}
