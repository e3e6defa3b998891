// Package api provides the client and wire types for the portal HTTP API.
//
// Every response body is an envelope {"data": ..., "message": ...}; field
// names inside data use the server's PascalCase convention.
package api

// envelope wraps every response body.
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is sent to sign in.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResult carries the bearer token issued at login.
type LoginResult struct {
	Token string `json:"token"`
}

// User is the signed-in user's profile.
type User struct {
	UserID   string `json:"UserID"`
	FullName string `json:"FullName"`
	Email    string `json:"Email"`
	Role     string `json:"Role,omitempty"`
}

// Site is a location that owns counters.
type Site struct {
	SiteID      string `json:"SiteID"`
	SiteCode    string `json:"SiteCode"`
	SiteName    string `json:"SiteName"`
	CompanyName string `json:"CompanyName"`
}

// Counter is a till position at a site.
type Counter struct {
	CounterID       string `json:"CounterID"`
	CounterNumber   string `json:"CounterNumber"`
	CounterName     string `json:"CounterName"`
	LocationDetails string `json:"LocationDetails,omitempty"`
}

// Device is hardware connected to a counter.
type Device struct {
	DeviceType   string `json:"DeviceType"`
	DeviceName   string `json:"DeviceName"`
	SerialNumber string `json:"SerialNumber,omitempty"`
}

// CounterInfo is the registered configuration of a counter.
type CounterInfo struct {
	Devices []Device `json:"devices"`
}

// ChangeRequest asks an administrator to correct a counter's registration.
type ChangeRequest struct {
	CounterID         string `json:"CounterId"`
	ChangeDescription string `json:"ChangeDescription"`
	RequestedBy       string `json:"RequestedBy"`
}

// StartReportRequest starts or resumes a counter report.
type StartReportRequest struct {
	SiteID    string `json:"SiteID"`
	CounterID string `json:"CounterID"`
}

// ReportSession identifies the report being filled in. ExistingDraftID is set
// when the server found an unfinished draft for the same site, counter and user.
type ReportSession struct {
	ReportID        string `json:"ReportID"`
	ExistingDraftID string `json:"ExistingDraftID,omitempty"`
}

// DraftSnapshot is the full state of a report form at one point in time.
// Each save replaces the previous snapshot.
type DraftSnapshot struct {
	ReportID   string            `json:"ReportID"`
	SiteID     string            `json:"SiteID"`
	CounterID  string            `json:"CounterID"`
	FormData   map[string]string `json:"FormData"`
	MediaFiles map[string]string `json:"MediaFiles"`
}

// SubmitRequest finalises a report.
type SubmitRequest struct {
	CounterReportData map[string]string `json:"CounterReportData"`
	MediaFiles        map[string]string `json:"MediaFiles"`
}

// MediaResult is returned by a successful upload.
type MediaResult struct {
	MediaID string `json:"MediaID"`
}

// Ack is the body of responses that carry no data.
type Ack struct {
	OK bool `json:"ok,omitempty"`
}
