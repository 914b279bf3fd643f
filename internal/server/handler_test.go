package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"campusmark/internal/auth"
	"campusmark/internal/model"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "campusmark-test"
)

// fakeStore keeps per-user collections in memory.
type fakeStore struct {
	records   map[string][]model.Record
	courses   map[string][]model.Course
	semesters map[string][]model.Semester
	fail      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   map[string][]model.Record{},
		courses:   map[string][]model.Course{},
		semesters: map[string][]model.Semester{},
	}
}

func (f *fakeStore) UpsertRecords(_ context.Context, userID string, records []model.Record) (int, error) {
	if f.fail {
		return 0, errors.New("store down")
	}
	for _, incoming := range records {
		replaced := false
		for i, existing := range f.records[userID] {
			if existing.Key() == incoming.Key() {
				f.records[userID][i] = incoming
				replaced = true
				break
			}
		}
		if !replaced {
			f.records[userID] = append(f.records[userID], incoming)
		}
	}
	return len(records), nil
}

func (f *fakeStore) UpsertCourses(_ context.Context, userID string, courses []model.Course) (int, error) {
	if f.fail {
		return 0, errors.New("store down")
	}
	f.courses[userID] = append(f.courses[userID], courses...)
	return len(courses), nil
}

func (f *fakeStore) UpsertSemesters(_ context.Context, userID string, semesters []model.Semester) (int, error) {
	if f.fail {
		return 0, errors.New("store down")
	}
	f.semesters[userID] = append(f.semesters[userID], semesters...)
	return len(semesters), nil
}

func (f *fakeStore) FetchUserData(_ context.Context, userID string) (model.Data, error) {
	if f.fail {
		return model.Data{}, errors.New("store down")
	}
	return model.Data{
		Records:   f.records[userID],
		Courses:   f.courses[userID],
		Semesters: f.semesters[userID],
	}, nil
}

func (f *fakeStore) DeleteUserData(_ context.Context, userID string) error {
	if f.fail {
		return errors.New("store down")
	}
	delete(f.records, userID)
	delete(f.courses, userID)
	delete(f.semesters, userID)
	return nil
}

func newTestRouter(t *testing.T, st Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := New(st, nil, func(context.Context) bool { return true },
		auth.GoogleVerifier{}, testKey, testIssuer, time.Hour)
	srv.verifyGoogle = func(idToken string) (auth.GoogleUser, error) {
		if idToken != "valid-google-token" {
			return auth.GoogleUser{}, errors.New("invalid")
		}
		return auth.GoogleUser{Email: "demo@example.com", Name: "Demo Student"}, nil
	}
	r := gin.New()
	srv.Register(r)
	return r
}

func sessionToken(t *testing.T, email string) string {
	t.Helper()
	token, _, err := auth.IssueSession(email, "Demo", testIssuer, testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, newFakeStore())

	w := doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Status != "ok" || res.Database != "connected" {
		t.Errorf("health = %+v", res)
	}
}

func TestGoogleAuthExchange(t *testing.T) {
	r := newTestRouter(t, newFakeStore())

	w := doJSON(t, r, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "valid-google-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		Token   string            `json:"token"`
		Profile model.UserProfile `json:"profile"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Profile.Email != "demo@example.com" {
		t.Errorf("profile = %+v", res.Profile)
	}
	claims, err := auth.Parse(res.Token, testKey, testIssuer)
	if err != nil || claims.Subject != "demo@example.com" {
		t.Errorf("session token invalid: %+v, %v", claims, err)
	}
}

func TestGoogleAuthRejectsBadToken(t *testing.T) {
	r := newTestRouter(t, newFakeStore())

	w := doJSON(t, r, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSyncRecords(t *testing.T) {
	st := newFakeStore()
	r := newTestRouter(t, st)
	token := sessionToken(t, "demo@example.com")

	body := map[string]any{
		"records": []model.Record{
			{Date: "2024-03-01", CourseID: "c1", Status: model.StatusPresent, UpdatedAt: 1000},
			{Date: "2024-03-02", CourseID: "c1", Status: model.StatusAbsent, UpdatedAt: 2000, IsSynced: true},
		},
		"userId": "demo@example.com",
	}
	w := doJSON(t, r, http.MethodPost, "/api/sync/records", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		Success bool `json:"success"`
		Synced  int  `json:"synced"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success || res.Synced != 1 {
		t.Errorf("already-synced items must be filtered out: %+v", res)
	}
	if len(st.records["demo@example.com"]) != 1 {
		t.Errorf("stored records = %+v", st.records["demo@example.com"])
	}
}

func TestSyncRecordsMissingBody(t *testing.T) {
	r := newTestRouter(t, newFakeStore())
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/sync/records", token, map[string]any{"userId": "demo@example.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing records must be a 400, got %d", w.Code)
	}
}

func TestSyncRequiresAuth(t *testing.T) {
	r := newTestRouter(t, newFakeStore())

	w := doJSON(t, r, http.MethodPost, "/api/sync/records", "", map[string]any{
		"records": []model.Record{}, "userId": "demo@example.com",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSyncRejectsForeignUser(t *testing.T) {
	r := newTestRouter(t, newFakeStore())
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/sync/courses", token, map[string]any{
		"courses": []model.Course{{ID: "c1", Name: "Physics", UpdatedAt: 1}},
		"userId":  "other@example.com",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("cross-user write must be a 403, got %d", w.Code)
	}
}

func TestFetchData(t *testing.T) {
	st := newFakeStore()
	st.semesters["demo@example.com"] = []model.Semester{{ID: "s1", Name: "Fall", UpdatedAt: 100}}
	r := newTestRouter(t, st)
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/data?userId=demo%40example.com", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var d model.Data
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if len(d.Semesters) != 1 || d.Semesters[0].Name != "Fall" {
		t.Errorf("data = %+v", d)
	}
	if d.Records == nil || d.Courses == nil {
		t.Error("empty collections must serialize as arrays, not null")
	}
}

func TestFetchDataMissingUserID(t *testing.T) {
	r := newTestRouter(t, newFakeStore())
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/data", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestDeleteData(t *testing.T) {
	st := newFakeStore()
	st.courses["demo@example.com"] = []model.Course{{ID: "c1", Name: "Physics"}}
	r := newTestRouter(t, st)
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodDelete, "/api/data?userId=demo%40example.com", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(st.courses["demo@example.com"]) != 0 {
		t.Error("delete-all left documents behind")
	}
}

func TestStoreFailureIs500(t *testing.T) {
	st := newFakeStore()
	st.fail = true
	r := newTestRouter(t, st)
	token := sessionToken(t, "demo@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/sync/semesters", token, map[string]any{
		"semesters": []model.Semester{{ID: "s1", Name: "Fall", UpdatedAt: 1}},
		"userId":    "demo@example.com",
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}
