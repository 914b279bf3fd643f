package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusmark/internal/model"
)

func TestSyncRecordsSendsPayloadAndToken(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody struct {
		Records []model.Record `json:"records"`
		UserID  string         `json:"userId"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(SyncResult{Success: true, Synced: len(gotBody.Records)})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	c.TokenSource = func() string { return "session-token" }

	records := []model.Record{{Date: "2024-03-01", CourseID: "c1", Status: model.StatusPresent, UpdatedAt: 1000}}
	res, err := c.SyncRecords(context.Background(), records, "demo@example.com")
	if err != nil {
		t.Fatalf("sync records: %v", err)
	}

	if gotPath != "/sync/records" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer session-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody.UserID != "demo@example.com" || len(gotBody.Records) != 1 {
		t.Errorf("payload = %+v", gotBody)
	}
	if !res.Success || res.Synced != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestFetchUserDataEscapesUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/data" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("userId"); got != "demo+x@example.com" {
			t.Errorf("userId = %q", got)
		}
		_ = json.NewEncoder(w).Encode(model.Data{
			Courses: []model.Course{{ID: "c1", Name: "Physics", UpdatedAt: 900}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	d, err := c.FetchUserData(context.Background(), "demo+x@example.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(d.Courses) != 1 || d.Courses[0].Name != "Physics" {
		t.Errorf("data = %+v", d)
	}
}

func TestDeleteUserData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(DeleteResult{Success: true, Message: "All user data deleted"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	res, err := c.DeleteUserData(context.Background(), "demo@example.com")
	if err != nil || !res.Success {
		t.Errorf("delete = %+v, %v", res, err)
	}
}

func TestNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"failed to sync records"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.SyncRecords(context.Background(), nil, "demo@example.com"); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestCheckHealth(t *testing.T) {
	database := "connected"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "database": database})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if !c.CheckHealth(context.Background()) {
		t.Error("expected healthy")
	}

	database = "disconnected"
	if c.CheckHealth(context.Background()) {
		t.Error("disconnected database must read unhealthy")
	}

	srv.Close()
	if c.CheckHealth(context.Background()) {
		t.Error("unreachable server must read unhealthy")
	}
}
