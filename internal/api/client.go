package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the portal API over authenticated HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit caps outbound requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, burst))
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the API rooted at baseURL (e.g. "http://host/api").
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	var res LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &res, false); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return res, nil
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/profile", nil, &u, true); err != nil {
		return User{}, fmt.Errorf("load profile: %w", err)
	}
	return u, nil
}

// Sites lists the sites the user may report on.
func (c *Client) Sites(ctx context.Context) ([]Site, error) {
	var sites []Site
	if err := c.doJSON(ctx, http.MethodGet, "/sites", nil, &sites, true); err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	return sites, nil
}

// Counters lists the counters at a site.
func (c *Client) Counters(ctx context.Context, siteID string) ([]Counter, error) {
	var counters []Counter
	path := "/sites/" + url.PathEscape(siteID) + "/counters"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &counters, true); err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	return counters, nil
}

// CounterInfo returns the registered devices of a counter.
func (c *Client) CounterInfo(ctx context.Context, counterID string) (CounterInfo, error) {
	var info CounterInfo
	path := "/counters/" + url.PathEscape(counterID) + "/info"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &info, true); err != nil {
		return CounterInfo{}, fmt.Errorf("load counter details: %w", err)
	}
	return info, nil
}

// RequestCounterChange files a correction request for a counter.
func (c *Client) RequestCounterChange(ctx context.Context, req ChangeRequest) error {
	if err := c.doJSON(ctx, http.MethodPost, "/admin/counter-changes", req, nil, true); err != nil {
		return fmt.Errorf("request counter change: %w", err)
	}
	return nil
}

// StartReport starts a report for site+counter, or resumes the user's
// unfinished one, in which case ExistingDraftID is set.
func (c *Client) StartReport(ctx context.Context, siteID, counterID string) (ReportSession, error) {
	var rs ReportSession
	req := StartReportRequest{SiteID: siteID, CounterID: counterID}
	if err := c.doJSON(ctx, http.MethodPost, "/reports/counter", req, &rs, true); err != nil {
		return ReportSession{}, fmt.Errorf("start report: %w", err)
	}
	return rs, nil
}

// LoadDraft fetches a saved draft.
func (c *Client) LoadDraft(ctx context.Context, draftID string) (DraftSnapshot, error) {
	var d DraftSnapshot
	path := "/reports/counter/draft/" + url.PathEscape(draftID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &d, true); err != nil {
		return DraftSnapshot{}, fmt.Errorf("load draft: %w", err)
	}
	return d, nil
}

// SaveDraft persists a snapshot, replacing whatever was saved before.
func (c *Client) SaveDraft(ctx context.Context, snap DraftSnapshot) error {
	if err := c.doJSON(ctx, http.MethodPost, "/reports/counter/draft", snap, nil, true); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// UploadMedia validates and uploads a file for one check and returns its id.
// Invalid media is rejected without any request being made.
func (c *Client) UploadMedia(ctx context.Context, reportID, counterID, checkType string, m Media) (string, error) {
	if err := ValidateMedia(m); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, m.Name))
	hdr.Set("Content-Type", m.ContentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, m.Body); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	for k, v := range map[string]string{"reportId": reportID, "counterId": counterID, "checkType": checkType} {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var res MediaResult
	path := "/reports/counter/" + url.PathEscape(reportID) + "/media"
	if err := c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), &res, true); err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return res.MediaID, nil
}

// SubmitReport finalises a report.
func (c *Client) SubmitReport(ctx context.Context, reportID string, formData, mediaFiles map[string]string) error {
	req := SubmitRequest{CounterReportData: formData, MediaFiles: mediaFiles}
	path := "/reports/counter/" + url.PathEscape(reportID) + "/submit"
	if err := c.doJSON(ctx, http.MethodPost, path, req, nil, true); err != nil {
		return fmt.Errorf("submit report: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out, authed)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any, authed bool) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	if authed {
		if c.tokens == nil {
			return ErrUnauthorized
		}
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var env envelope[json.RawMessage]
		if json.Unmarshal(data, &env) == nil {
			se.Message = env.Message
		}
		return se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	env := envelope[any]{Data: out}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// IsUnauthorized reports whether err means the user must sign in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
