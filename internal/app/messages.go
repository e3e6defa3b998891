package app

import (
	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/wizard"
)

// Messages that answer an API call carry the page generation they were
// started from; a result for a page that has since been left is dropped.

// LoginDoneMsg carries the result of a sign-in attempt.
type LoginDoneMsg struct {
	Page     int
	Token    string
	Remember bool
	Err      error
}

// ProfileLoadedMsg carries the signed-in user.
type ProfileLoadedMsg struct {
	User api.User
	Err  error
}

// SitesLoadedMsg carries the sites for the site selection page.
type SitesLoadedMsg struct {
	Page  int
	Sites []api.Site
	Err   error
}

// SiteContinueMsg reports whether the selected site can be used.
type SiteContinueMsg struct {
	Page int
	Err  error
}

// CountersLoadedMsg carries the counters of the selected site.
type CountersLoadedMsg struct {
	Page     int
	Counters []api.Counter
	Err      error
}

// CounterInfoMsg carries the registered devices of the selected counter.
type CounterInfoMsg struct {
	Page int
	Info api.CounterInfo
	Err  error
}

// ChangeRequestedMsg reports the result of a counter change request.
type ChangeRequestedMsg struct {
	Page int
	Err  error
}

// ReportStartedMsg carries the report opened for the selected counter.
type ReportStartedMsg struct {
	Page   int
	Result wizard.StartResult
	Err    error
}

// AutosaveTickMsg fires every autosave interval while a report is open.
type AutosaveTickMsg struct {
	Page int
}

// AutosaveDoneMsg reports an automatic save. Saved is false when the tick
// was dropped because a save was already in flight, or when the save failed.
type AutosaveDoneMsg struct {
	Page  int
	Saved bool
	Err   error
}

// DraftSavedMsg reports a manual save.
type DraftSavedMsg struct {
	Page int
	Err  error
}

// MediaUploadedMsg reports an upload for one check.
type MediaUploadedMsg struct {
	Page      int
	CheckType string
	MediaID   string
	Image     bool
	Err       error
}

// SubmitDoneMsg reports the result of submitting the report.
type SubmitDoneMsg struct {
	Page int
	Err  error
}

// RedirectMsg moves to Step once a delay has passed.
type RedirectMsg struct {
	Page int
	Step wizard.Step
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct {
	Seq int
}
