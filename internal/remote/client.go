// Package remote is the sync transport: a thin HTTP client for the
// CampusMark sync API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"campusmark/internal/model"
)

// SyncResult is the acknowledgment of one bulk upsert call.
type SyncResult struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
}

// DeleteResult is the acknowledgment of a delete-all call.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Session is the outcome of exchanging a Google ID token.
type Session struct {
	Token   string            `json:"token"`
	Profile model.UserProfile `json:"profile"`
}

// Client calls the sync API. TokenSource, when set, supplies the bearer
// token attached to authenticated calls.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	TokenSource func() string
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// do issues one JSON request and decodes the response into out. Any
// non-2xx status is an error; callers treat all errors alike.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.TokenSource != nil {
		if token := c.TokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sync api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sync api error %s: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchUserData returns the remote snapshot for one user.
func (c *Client) FetchUserData(ctx context.Context, userID string) (model.Data, error) {
	var out model.Data
	err := c.do(ctx, http.MethodGet, "/data?userId="+url.QueryEscape(userID), nil, &out)
	return out, err
}

// SyncRecords upserts attendance records for one user.
func (c *Client) SyncRecords(ctx context.Context, records []model.Record, userID string) (SyncResult, error) {
	var out SyncResult
	err := c.do(ctx, http.MethodPost, "/sync/records", map[string]any{
		"records": records,
		"userId":  userID,
	}, &out)
	return out, err
}

// SyncCourses upserts courses for one user.
func (c *Client) SyncCourses(ctx context.Context, courses []model.Course, userID string) (SyncResult, error) {
	var out SyncResult
	err := c.do(ctx, http.MethodPost, "/sync/courses", map[string]any{
		"courses": courses,
		"userId":  userID,
	}, &out)
	return out, err
}

// SyncSemesters upserts semesters for one user.
func (c *Client) SyncSemesters(ctx context.Context, semesters []model.Semester, userID string) (SyncResult, error) {
	var out SyncResult
	err := c.do(ctx, http.MethodPost, "/sync/semesters", map[string]any{
		"semesters": semesters,
		"userId":    userID,
	}, &out)
	return out, err
}

// DeleteUserData removes every remote document for one user.
func (c *Client) DeleteUserData(ctx context.Context, userID string) (DeleteResult, error) {
	var out DeleteResult
	err := c.do(ctx, http.MethodDelete, "/data?userId="+url.QueryEscape(userID), nil, &out)
	return out, err
}

// ExchangeGoogleToken trades a Google ID token for a session token.
func (c *Client) ExchangeGoogleToken(ctx context.Context, idToken string) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/auth/google", map[string]string{
		"idToken": idToken,
	}, &out)
	return out, err
}

// CheckHealth reports whether the API and its database are reachable.
// Used as the connectivity probe by the sync daemon.
func (c *Client) CheckHealth(ctx context.Context) bool {
	var out struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return false
	}
	return out.Status == "ok" && out.Database == "connected"
}
