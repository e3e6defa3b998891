// Package session holds the wizard's in-progress selections for the lifetime
// of one client process, the way a browser tab's session storage would.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed storage keys.
const (
	KeySelectedSite    = "selectedSite"
	KeySelectedCounter = "selectedCounter"
)

const scope = "session"

// ErrNoSite is returned when a counter is selected before a site.
var ErrNoSite = errors.New("no site selected")

// Site is the site chosen on the first wizard step.
type Site struct {
	SiteID      string `json:"siteId"`
	SiteCode    string `json:"siteCode"`
	SiteName    string `json:"siteName"`
	CompanyName string `json:"companyName"`
}

// Counter is the counter chosen on the second wizard step.
type Counter struct {
	CounterID       string `json:"counterId"`
	CounterNumber   string `json:"counterNumber"`
	CounterName     string `json:"counterName"`
	LocationDetails string `json:"locationDetails,omitempty"`
}

// Backend is the key/value storage the selections live in. *db.Store satisfies it.
type Backend interface {
	Get(scope, key string) (string, bool, error)
	Set(scope, key, value string) error
	Delete(scope, key string) error
	Clear(scope string) error
}

// Store reads and writes the session selections.
type Store struct {
	backend Backend
}

// NewStore wraps backend. Use an in-memory backend so nothing outlives the process.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Site returns the selected site, or nil when none is stored.
func (s *Store) Site() (*Site, error) {
	var site Site
	ok, err := s.load(KeySelectedSite, &site)
	if err != nil || !ok {
		return nil, err
	}
	return &site, nil
}

// Counter returns the selected counter, or nil when none is stored.
func (s *Store) Counter() (*Counter, error) {
	var counter Counter
	ok, err := s.load(KeySelectedCounter, &counter)
	if err != nil || !ok {
		return nil, err
	}
	return &counter, nil
}

// SetSite stores the selected site. Picking a site invalidates any counter
// chosen for a previous site.
func (s *Store) SetSite(site Site) error {
	prev, err := s.Site()
	if err != nil {
		return err
	}
	if prev != nil && prev.SiteID != site.SiteID {
		if err := s.backend.Delete(scope, KeySelectedCounter); err != nil {
			return fmt.Errorf("drop stale counter: %w", err)
		}
	}
	return s.save(KeySelectedSite, site)
}

// SetCounter stores the selected counter. A site must already be selected.
func (s *Store) SetCounter(counter Counter) error {
	site, err := s.Site()
	if err != nil {
		return err
	}
	if site == nil {
		return ErrNoSite
	}
	return s.save(KeySelectedCounter, counter)
}

// Clear removes both selections.
func (s *Store) Clear() error {
	if err := s.backend.Clear(scope); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) load(key string, v any) (bool, error) {
	raw, ok, err := s.backend.Get(scope, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(scope, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
