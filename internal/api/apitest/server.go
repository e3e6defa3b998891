// Package apitest is an in-process fake of the portal API for tests and
// local runs. It keeps everything in memory and records every call.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/itms/portal/internal/api"
)

// Fixture credentials accepted by a new Fake.
const (
	Email    = "tech@example.com"
	Password = "hunter2"
)

var signingKey = []byte("apitest-signing-key-apitest-signing-key")

type report struct {
	id        string
	siteID    string
	counterID string
	userID    string
	draftID   string
	submitted bool
}

// Fake is the fake API state.
type Fake struct {
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	mu        sync.Mutex
	user      api.User
	tokens    map[string]bool
	sites     []api.Site
	counters  map[string][]api.Counter
	devices   map[string][]api.Device
	reports   map[string]*report
	drafts    map[string]api.DraftSnapshot
	media     map[string]string
	submitted map[string]api.SubmitRequest
	changes   []api.ChangeRequest
	calls     []string
	failures  map[string]int
	gates     map[string]chan struct{}
	maxUpload int64
}

// New returns a Fake seeded with one user, two sites and their counters.
func New() *Fake {
	return &Fake{
		TokenTTL: time.Hour,
		user:     api.User{UserID: "u-1", FullName: "Field Tech", Email: Email, Role: "technician"},
		tokens:   make(map[string]bool),
		sites: []api.Site{
			{SiteID: "s-1", SiteCode: "LDN1", SiteName: "London Bridge", CompanyName: "Acme Retail"},
			{SiteID: "s-2", SiteCode: "MAN1", SiteName: "Manchester Piccadilly", CompanyName: "Acme Retail"},
		},
		counters: map[string][]api.Counter{
			"s-1": {
				{CounterID: "c-1", CounterNumber: "01", CounterName: "Front Till", LocationDetails: "By the entrance"},
				{CounterID: "c-2", CounterNumber: "02", CounterName: "Kiosk"},
			},
		},
		devices: map[string][]api.Device{
			"c-1": {
				{DeviceType: "Printer", DeviceName: "TM-T88", SerialNumber: "PR-001"},
				{DeviceType: "Scanner", DeviceName: "DS2208"},
			},
		},
		reports:   make(map[string]*report),
		drafts:    make(map[string]api.DraftSnapshot),
		media:     make(map[string]string),
		submitted: make(map[string]api.SubmitRequest),
		failures:  make(map[string]int),
		gates:     make(map[string]chan struct{}),
		maxUpload: api.MaxMediaSize + 1<<20,
	}
}

// TB is the subset of testing.TB used by NewServer.
type TB interface {
	Helper()
	Cleanup(func())
}

// NewServer starts an httptest server for a new Fake, closed when tb ends.
// The returned URL is the API base.
func NewServer(tb TB) (*Fake, string) {
	tb.Helper()
	f := New()
	srv := httptest.NewServer(f.Handler())
	tb.Cleanup(srv.Close)
	return f, srv.URL
}

// Handler returns the router for the fake API.
func (f *Fake) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)
	r.Post("/auth/login", f.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(f.requireToken)
		r.Get("/auth/profile", f.handleProfile)
		r.Get("/sites", f.handleSites)
		r.Get("/sites/{siteID}/counters", f.handleCounters)
		r.Get("/counters/{counterID}/info", f.handleCounterInfo)
		r.Post("/admin/counter-changes", f.handleCounterChange)
		r.Post("/reports/counter", f.handleStartReport)
		r.Get("/reports/counter/draft/{draftID}", f.handleGetDraft)
		r.Post("/reports/counter/draft", f.handleSaveDraft)
		r.Post("/reports/counter/{reportID}/media", f.handleUpload)
		r.Post("/reports/counter/{reportID}/submit", f.handleSubmit)
	})
	return r
}

// IssueToken returns a valid bearer token without going through login.
func (f *Fake) IssueToken() string {
	claims := jwt.RegisteredClaims{
		Subject:   f.user.UserID,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(f.TokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic("apitest: sign token: " + err.Error())
	}
	f.mu.Lock()
	f.tokens[token] = true
	f.mu.Unlock()
	return token
}

// RevokeTokens invalidates every issued token.
func (f *Fake) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.tokens)
}

// FailNext makes the next n calls matching "METHOD /path" answer with status.
// route is the concrete request, e.g. "POST /reports/counter/draft".
func (f *Fake) FailNext(route string, status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route+"|"+fmt.Sprint(status)] = n
}

// Hold blocks calls matching route until the returned release func is called.
func (f *Fake) Hold(route string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[route] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, route)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns "METHOD /path" for every request received, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CountCalls returns how many requests matched "METHOD /path".
func (f *Fake) CountCalls(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Draft returns the latest snapshot saved for a report.
func (f *Fake) Draft(reportID string) (api.DraftSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[reportID]
	if !ok {
		return api.DraftSnapshot{}, false
	}
	d, ok := f.drafts[r.draftID]
	return d, ok && d.FormData != nil
}

// Submission returns what was submitted for a report.
func (f *Fake) Submission(reportID string) (api.SubmitRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submitted[reportID]
	return s, ok
}

// ChangeRequests returns the filed counter change requests.
func (f *Fake) ChangeRequests() []api.ChangeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ChangeRequest(nil), f.changes...)
}

// SetSites replaces the site list.
func (f *Fake) SetSites(sites []api.Site) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sites = sites
}

// SetCounters replaces the counters of a site.
func (f *Fake) SetCounters(siteID string, counters []api.Counter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[siteID] = counters
}

func (f *Fake) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.calls = append(f.calls, call)
		gate := f.gates[call]
		status := 0
		for key, n := range f.failures {
			route, code, _ := strings.Cut(key, "|")
			if route == call && n > 0 {
				f.failures[key] = n - 1
				fmt.Sscan(code, &status)
				break
			}
		}
		f.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Fake) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		valid := ok && f.tokens[token]
		f.mu.Unlock()
		if valid {
			_, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return signingKey, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			valid = err == nil
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Fake) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email != Email || req.Password != Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeData(w, http.StatusOK, api.LoginResult{Token: f.IssueToken()})
}

func (f *Fake) handleProfile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeData(w, http.StatusOK, f.user)
}

func (f *Fake) handleSites(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeData(w, http.StatusOK, f.sites)
}

func (f *Fake) handleCounters(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counters := f.counters[chi.URLParam(r, "siteID")]
	if counters == nil {
		counters = []api.Counter{}
	}
	writeData(w, http.StatusOK, counters)
}

func (f *Fake) handleCounterInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeData(w, http.StatusOK, api.CounterInfo{Devices: f.devices[chi.URLParam(r, "counterID")]})
}

func (f *Fake) handleCounterChange(w http.ResponseWriter, r *http.Request) {
	var req api.ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CounterID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	f.mu.Lock()
	f.changes = append(f.changes, req)
	f.mu.Unlock()
	writeData(w, http.StatusCreated, api.Ack{OK: true})
}

func (f *Fake) handleStartReport(w http.ResponseWriter, r *http.Request) {
	var req api.StartReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SiteID == "" || req.CounterID == "" {
		writeError(w, http.StatusBadRequest, "SiteID and CounterID are required")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rep := range f.reports {
		if rep.siteID == req.SiteID && rep.counterID == req.CounterID &&
			rep.userID == f.user.UserID && !rep.submitted {
			writeData(w, http.StatusOK, api.ReportSession{ReportID: rep.id, ExistingDraftID: rep.draftID})
			return
		}
	}

	rep := &report{
		id:        uuid.NewString(),
		siteID:    req.SiteID,
		counterID: req.CounterID,
		userID:    f.user.UserID,
		draftID:   uuid.NewString(),
	}
	f.reports[rep.id] = rep
	f.drafts[rep.draftID] = api.DraftSnapshot{ReportID: rep.id, SiteID: rep.siteID, CounterID: rep.counterID}
	writeData(w, http.StatusCreated, api.ReportSession{ReportID: rep.id})
}

func (f *Fake) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[chi.URLParam(r, "draftID")]
	if !ok {
		writeError(w, http.StatusNotFound, "Draft not found")
		return
	}
	writeData(w, http.StatusOK, d)
}

func (f *Fake) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var snap api.DraftSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[snap.ReportID]
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if rep.submitted {
		writeError(w, http.StatusConflict, "Report already submitted")
		return
	}
	if snap.FormData == nil {
		snap.FormData = map[string]string{}
	}
	f.drafts[rep.draftID] = snap
	writeData(w, http.StatusOK, api.Ack{OK: true})
}

func (f *Fake) handleUpload(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	n, _ := io.Copy(io.Discard, io.LimitReader(file, f.maxUpload))

	checkType := r.FormValue("checkType")
	if checkType == "" || r.FormValue("reportId") != reportID || n == 0 {
		writeError(w, http.StatusBadRequest, "reportId, checkType and a non-empty file are required")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[reportID]; !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	id := uuid.NewString()
	f.media[id] = checkType
	writeData(w, http.StatusCreated, api.MediaResult{MediaID: id})
}

func (f *Fake) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[reportID]
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	rep.submitted = true
	f.submitted[reportID] = req
	writeData(w, http.StatusOK, api.Ack{OK: true})
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": msg})
}
