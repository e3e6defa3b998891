package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/session"
)

var (
	ErrNoSelection       = errors.New("nothing selected")
	ErrNoCounters        = errors.New("no counters found at the selected site")
	ErrEmptyDescription  = errors.New("describe the required changes")
	ErrUnknownSelection  = errors.New("selection not in list")
	ErrVerificationFirst = errors.New("verify the counter or request changes first")
)

// API is the subset of the portal API the wizard uses. *api.Client satisfies it.
type API interface {
	Sites(ctx context.Context) ([]api.Site, error)
	Counters(ctx context.Context, siteID string) ([]api.Counter, error)
	CounterInfo(ctx context.Context, counterID string) (api.CounterInfo, error)
	RequestCounterChange(ctx context.Context, req api.ChangeRequest) error
	StartReport(ctx context.Context, siteID, counterID string) (api.ReportSession, error)
	LoadDraft(ctx context.Context, draftID string) (api.DraftSnapshot, error)
	SaveDraft(ctx context.Context, snap api.DraftSnapshot) error
	UploadMedia(ctx context.Context, reportID, counterID, checkType string, m api.Media) (string, error)
	SubmitReport(ctx context.Context, reportID string, formData, mediaFiles map[string]string) error
}

// SiteSelection backs the first wizard step. Fetch and Continue do I/O and
// may run off the UI goroutine; the remaining methods are plain state.
type SiteSelection struct {
	api     API
	session *session.Store

	sites    []api.Site
	selected int
}

// NewSiteSelection returns an empty site selection.
func NewSiteSelection(c API, s *session.Store) *SiteSelection {
	return &SiteSelection{api: c, session: s, selected: -1}
}

// Fetch loads the sites available to the user.
func (p *SiteSelection) Fetch(ctx context.Context) ([]api.Site, error) {
	return p.api.Sites(ctx)
}

// SetSites replaces the list. A single site is selected automatically.
func (p *SiteSelection) SetSites(sites []api.Site) {
	p.sites = sites
	p.selected = -1
	if len(sites) == 1 {
		p.selected = 0
	}
}

// Sites returns the loaded sites.
func (p *SiteSelection) Sites() []api.Site { return p.sites }

// Select picks the site at index i.
func (p *SiteSelection) Select(i int) error {
	if i < 0 || i >= len(p.sites) {
		return ErrUnknownSelection
	}
	p.selected = i
	return nil
}

// Selected returns the picked site.
func (p *SiteSelection) Selected() (api.Site, bool) {
	if p.selected < 0 {
		return api.Site{}, false
	}
	return p.sites[p.selected], true
}

// Continue stores the site in the session and checks it has counters.
func (p *SiteSelection) Continue(ctx context.Context, site api.Site) error {
	if site.SiteID == "" {
		return ErrNoSelection
	}
	err := p.session.SetSite(session.Site{
		SiteID:      site.SiteID,
		SiteCode:    site.SiteCode,
		SiteName:    site.SiteName,
		CompanyName: site.CompanyName,
	})
	if err != nil {
		return fmt.Errorf("store site: %w", err)
	}
	counters, err := p.api.Counters(ctx, site.SiteID)
	if err != nil {
		return fmt.Errorf("validate site: %w", err)
	}
	if len(counters) == 0 {
		return ErrNoCounters
	}
	return nil
}

// CounterSelection backs the second wizard step.
type CounterSelection struct {
	api     API
	session *session.Store

	counters []api.Counter
	selected int
}

// NewCounterSelection returns an empty counter selection.
func NewCounterSelection(c API, s *session.Store) *CounterSelection {
	return &CounterSelection{api: c, session: s, selected: -1}
}

// Site returns the site chosen on the previous step.
func (p *CounterSelection) Site() (*session.Site, error) {
	site, err := p.session.Site()
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, session.ErrNoSite
	}
	return site, nil
}

// Fetch loads the counters of the selected site.
func (p *CounterSelection) Fetch(ctx context.Context) ([]api.Counter, error) {
	site, err := p.Site()
	if err != nil {
		return nil, err
	}
	return p.api.Counters(ctx, site.SiteID)
}

// SetCounters replaces the list and clears the selection.
func (p *CounterSelection) SetCounters(counters []api.Counter) {
	p.counters = counters
	p.selected = -1
}

// Counters returns the loaded counters.
func (p *CounterSelection) Counters() []api.Counter { return p.counters }

// Select picks the counter at index i.
func (p *CounterSelection) Select(i int) error {
	if i < 0 || i >= len(p.counters) {
		return ErrUnknownSelection
	}
	p.selected = i
	return nil
}

// Selected returns the picked counter.
func (p *CounterSelection) Selected() (api.Counter, bool) {
	if p.selected < 0 {
		return api.Counter{}, false
	}
	return p.counters[p.selected], true
}

// Continue stores the selected counter in the session.
func (p *CounterSelection) Continue() error {
	c, ok := p.Selected()
	if !ok {
		return ErrNoSelection
	}
	return p.session.SetCounter(session.Counter{
		CounterID:       c.CounterID,
		CounterNumber:   c.CounterNumber,
		CounterName:     c.CounterName,
		LocationDetails: c.LocationDetails,
	})
}

// CounterVerification backs the third wizard step: the user confirms the
// counter's registered devices or files a change request. Either unlocks
// the report.
type CounterVerification struct {
	api     API
	session *session.Store

	devices  []api.Device
	unlocked bool
}

// NewCounterVerification returns a locked verification step.
func NewCounterVerification(c API, s *session.Store) *CounterVerification {
	return &CounterVerification{api: c, session: s}
}

// Selection returns the site and counter being verified.
func (p *CounterVerification) Selection() (*session.Site, *session.Counter, error) {
	site, err := p.session.Site()
	if err != nil {
		return nil, nil, err
	}
	counter, err := p.session.Counter()
	if err != nil {
		return nil, nil, err
	}
	if site == nil || counter == nil {
		return nil, nil, ErrNoSelection
	}
	return site, counter, nil
}

// Fetch loads the registered devices of the selected counter.
func (p *CounterVerification) Fetch(ctx context.Context) (api.CounterInfo, error) {
	_, counter, err := p.Selection()
	if err != nil {
		return api.CounterInfo{}, err
	}
	return p.api.CounterInfo(ctx, counter.CounterID)
}

// SetDevices records the loaded devices.
func (p *CounterVerification) SetDevices(devices []api.Device) { p.devices = devices }

// Devices returns the loaded devices.
func (p *CounterVerification) Devices() []api.Device { return p.devices }

// Verify confirms the registration is correct.
func (p *CounterVerification) Verify() { p.unlocked = true }

// Unlock marks a change request as filed.
func (p *CounterVerification) Unlock() { p.unlocked = true }

// CanContinue reports whether the report may be opened.
func (p *CounterVerification) CanContinue() bool { return p.unlocked }

// Continue returns ErrVerificationFirst until the step is unlocked.
func (p *CounterVerification) Continue() error {
	if !p.unlocked {
		return ErrVerificationFirst
	}
	return nil
}

// RequestChanges files a change request for the selected counter on behalf
// of userID. The caller unlocks the step on success.
func (p *CounterVerification) RequestChanges(ctx context.Context, userID, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyDescription
	}
	_, counter, err := p.Selection()
	if err != nil {
		return err
	}
	return p.api.RequestCounterChange(ctx, api.ChangeRequest{
		CounterID:         counter.CounterID,
		ChangeDescription: description,
		RequestedBy:       userID,
	})
}
