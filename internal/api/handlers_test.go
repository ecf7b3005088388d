package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harvestguard/fieldsync/internal/reconcile"
	"github.com/harvestguard/fieldsync/internal/store"
)

type testServer struct {
	srv   *httptest.Server
	store *store.SQLiteStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := reconcile.NewOrchestrator(db, logger)
	handler := NewHandler(db, orch, filepath.Join(dir, "media"), "test")
	srv := httptest.NewServer(NewRouter(handler, db))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: db}
}

// do sends a JSON request, optionally authenticated, and decodes the response.
func (ts *testServer) do(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp
}

// register creates an account through the API and returns its token.
func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	var reply struct {
		Token string `json:"token"`
	}
	resp := ts.do(t, http.MethodPost, "/api/auth/register/", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	}, &reply)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	return reply.Token
}

func TestHealth_Public(t *testing.T) {
	ts := newTestServer(t)

	var reply struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	resp := ts.do(t, http.MethodGet, "/api/health", "", nil, &reply)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if reply.Status != "healthy" || reply.Version != "test" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)

	token := ts.register(t, "alma")
	if token == "" {
		t.Fatal("empty token from register")
	}

	// Wrong password is rejected without revealing which part was wrong
	resp := ts.do(t, http.MethodPost, "/api/auth/login/", "", map[string]string{
		"username": "alma", "password": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}

	var login struct {
		Token string `json:"token"`
	}
	resp = ts.do(t, http.MethodPost, "/api/auth/login/", "", map[string]string{
		"username": "alma", "password": "hunter2hunter2",
	}, &login)
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		t.Fatalf("login status %d token %q", resp.StatusCode, login.Token)
	}

	resp = ts.do(t, http.MethodPost, "/api/auth/logout/", login.Token, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("logout status = %d", resp.StatusCode)
	}

	// Revoked token no longer authenticates
	resp = ts.do(t, http.MethodGet, "/api/farms/", login.Token, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", resp.StatusCode)
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/auth/register/", "", map[string]string{
		"username": "alma", "password": "short",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("short password status = %d, want 422", resp.StatusCode)
	}

	ts.register(t, "alma")
	resp = ts.do(t, http.MethodPost, "/api/auth/register/", "", map[string]string{
		"username": "alma", "password": "hunter2hunter2",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate username status = %d, want 409", resp.StatusCode)
	}
}

func TestAuth_ProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/farms/", "/api/observation-points/", "/api/profile/"} {
		resp := ts.do(t, http.MethodGet, path, "", nil, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without token: status %d, want 401", path, resp.StatusCode)
		}
	}

	// Bearer scheme is not the token scheme
	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/farms/", nil)
	req.Header.Set("Authorization", "Bearer something")
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Bearer header status = %d, want 401", resp.StatusCode)
	}
}

// Route segments are hyphenated as the mobile client expects; JSON body keys
// keep their underscored names.
func TestKindRoutes_HyphenatedPaths(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	for _, path := range []string{
		"/api/boundary-points/",
		"/api/observation-points/",
		"/api/inspection-suggestions/",
	} {
		resp := ts.do(t, http.MethodGet, path, token, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}

	ts.do(t, http.MethodPost, "/api/farms/sync/", token, map[string]any{
		"farms": []map[string]any{{"id": 1, "name": "Plot", "size": 1.0, "plant_type": "Tea"}},
	}, nil)

	var outcome struct {
		Created int `json:"created"`
	}
	resp := ts.do(t, http.MethodPost, "/api/boundary-points/sync/", token, map[string]any{
		"boundary_points": []map[string]any{{"id": 1, "farm_id": 1, "latitude": 1.0, "longitude": 2.0}},
	}, &outcome)
	if resp.StatusCode != http.StatusOK || outcome.Created != 1 {
		t.Fatalf("boundary point sync: status %d outcome %+v", resp.StatusCode, outcome)
	}
}

func TestFarmCRUD_OverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	var farm struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	resp := ts.do(t, http.MethodPost, "/api/farms/", token, map[string]any{
		"name": "North Plot", "size": 2.5, "plant_type": "Tea",
	}, &farm)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/api/farms/%d/", farm.ID), token,
		map[string]any{"name": "South Plot"}, &farm)
	if resp.StatusCode != http.StatusOK || farm.Name != "South Plot" {
		t.Fatalf("update status %d name %q", resp.StatusCode, farm.Name)
	}

	var farms []json.RawMessage
	ts.do(t, http.MethodGet, "/api/farms/", token, nil, &farms)
	if len(farms) != 1 {
		t.Errorf("list returned %d farms", len(farms))
	}

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/farms/%d/", farm.ID), token, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status %d", resp.StatusCode)
	}
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/farms/%d/", farm.ID), token, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status %d", resp.StatusCode)
	}
}

func TestFarmCRUD_TenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	almaToken := ts.register(t, "alma")
	irisToken := ts.register(t, "iris")

	var farm struct {
		ID int64 `json:"id"`
	}
	ts.do(t, http.MethodPost, "/api/farms/", almaToken, map[string]any{"name": "Alma's"}, &farm)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/farms/%d/", farm.ID), irisToken, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant read status = %d, want 404", resp.StatusCode)
	}
	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/farms/%d/", farm.ID), irisToken, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant delete status = %d, want 404", resp.StatusCode)
	}
}

func TestSyncEndpoint_PerKind(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	var outcome struct {
		Status  string `json:"status"`
		Created int    `json:"created"`
		Results []struct {
			MobileID *int64 `json:"mobile_id"`
			ServerID int64  `json:"server_id"`
			Status   string `json:"status"`
		} `json:"results"`
	}
	resp := ts.do(t, http.MethodPost, "/api/farms/sync/", token, map[string]any{
		"farms": []map[string]any{
			{"id": 7, "name": "North Plot", "size": 2.5},
		},
	}, &outcome)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status %d", resp.StatusCode)
	}
	if outcome.Created != 1 || len(outcome.Results) != 1 {
		t.Fatalf("outcome: %+v", outcome)
	}
	if outcome.Results[0].Status != "created" || outcome.Results[0].ServerID == 0 {
		t.Errorf("result: %+v", outcome.Results[0])
	}

	// Wrong body key is a 400
	resp = ts.do(t, http.MethodPost, "/api/farms/sync/", token, map[string]any{
		"farm_list": []map[string]any{},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing kind key status = %d, want 400", resp.StatusCode)
	}
}

func TestSyncEndpoint_Combined(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	var outcome struct {
		Status  string                     `json:"status"`
		Results map[string]json.RawMessage `json:"results"`
	}
	resp := ts.do(t, http.MethodPost, "/api/sync/", token, map[string]any{
		"farms": []map[string]any{
			{"id": 7, "name": "North Plot"},
		},
		"observation_points": []map[string]any{
			{"id": 30, "farm_id": 7, "latitude": 1.0, "longitude": 1.0},
		},
	}, &outcome)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("combined sync status %d", resp.StatusCode)
	}
	if outcome.Status != "success" {
		t.Errorf("status = %q", outcome.Status)
	}
	if _, ok := outcome.Results["farms"]; !ok {
		t.Error("farms missing from results")
	}
	if _, ok := outcome.Results["observation_points"]; !ok {
		t.Error("observation_points missing from results")
	}
	if _, ok := outcome.Results["boundary_points"]; ok {
		t.Error("absent kind present in results")
	}
}

func TestPendingSync_Watermark(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	ts.do(t, http.MethodPost, "/api/farms/sync/", token, map[string]any{
		"farms": []map[string]any{{"id": 7, "name": "Before"}},
	}, nil)

	watermark := time.Now().UTC().Format(time.RFC3339Nano)
	time.Sleep(2 * time.Millisecond)

	ts.do(t, http.MethodPost, "/api/farms/sync/", token, map[string]any{
		"farms": []map[string]any{{"id": 8, "name": "After"}},
	}, nil)

	// The response is the bare array of entity representations.
	var pending []struct {
		Name string `json:"name"`
	}
	resp := ts.do(t, http.MethodGet, "/api/farms/pending_sync/?last_sync="+watermark, token, nil, &pending)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending_sync status %d", resp.StatusCode)
	}
	if len(pending) != 1 || pending[0].Name != "After" {
		t.Fatalf("pending farms: %+v", pending)
	}

	// No watermark returns everything
	pending = nil
	resp = ts.do(t, http.MethodGet, "/api/farms/pending_sync/", token, nil, &pending)
	if resp.StatusCode != http.StatusOK || len(pending) != 2 {
		t.Errorf("full pending status %d count %d", resp.StatusCode, len(pending))
	}

	// Garbage watermark is a 400
	resp = ts.do(t, http.MethodGet, "/api/farms/pending_sync/?last_sync=yesterday", token, nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad watermark status = %d, want 400", resp.StatusCode)
	}
}

func TestProfileEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alma")

	var profile struct {
		UserID  int64   `json:"user_id"`
		Company *string `json:"company"`
		User    struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	resp := ts.do(t, http.MethodGet, "/api/profile/", token, nil, &profile)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get profile status %d", resp.StatusCode)
	}
	if profile.User.Username != "alma" {
		t.Errorf("embedded user = %+v", profile.User)
	}

	resp = ts.do(t, http.MethodPut, "/api/profile/update_profile/", token, map[string]any{
		"company": "HarvestGuard", "first_name": "Alma",
	}, &profile)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile status %d", resp.StatusCode)
	}
	if profile.Company == nil || *profile.Company != "HarvestGuard" {
		t.Errorf("company = %v", profile.Company)
	}

	// Password change, then log in with the new one
	resp = ts.do(t, http.MethodPost, "/api/profile/change_password/", token, map[string]string{
		"old_password": "hunter2hunter2", "new_password": "betterpassword9",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password status %d", resp.StatusCode)
	}
	resp = ts.do(t, http.MethodPost, "/api/auth/login/", "", map[string]string{
		"username": "alma", "password": "betterpassword9",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login with new password status %d", resp.StatusCode)
	}

	// Wrong old password is a 403
	resp = ts.do(t, http.MethodPost, "/api/profile/change_password/", token, map[string]string{
		"old_password": "nope", "new_password": "whatever123",
	}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong old password status = %d, want 403", resp.StatusCode)
	}

	// Sync stamp
	var synced struct {
		SyncStatus string `json:"sync_status"`
	}
	resp = ts.do(t, http.MethodGet, "/api/profile/sync/", token, nil, &synced)
	if resp.StatusCode != http.StatusOK || synced.SyncStatus != "synced" {
		t.Errorf("profile sync status %d sync_status %q", resp.StatusCode, synced.SyncStatus)
	}
}

func TestProblemResponses_AreRFC7807(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/farms/", nil)
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var problem Problem
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
		t.Fatal(err)
	}
	if problem.Status != http.StatusUnauthorized || problem.Title != "Unauthorized" {
		t.Errorf("problem = %+v", problem)
	}
	if problem.Instance != "/api/farms/" {
		t.Errorf("instance = %q", problem.Instance)
	}
}
