package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"dockwise/internal/config"
	"dockwise/internal/db"
	"dockwise/internal/domain"
	"dockwise/internal/engine"
	"dockwise/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default()
	cfg.Auth.BcryptCost = 4
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

// registerAndLogin creates an account over the API and returns a bearer token.
func registerAndLogin(t *testing.T, srv *testServer, email, role string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/register", map[string]any{
		"email":    email,
		"name":     "Test User",
		"role":     role,
		"password": "Sup3rSecret",
	}, "")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    email,
		"password": "Sup3rSecret",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if tok.AccessToken == "" {
		t.Fatalf("empty access token: %s", string(data))
	}
	return tok.AccessToken
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func TestAuthFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	token := registerAndLogin(t, srv, "admin@example.com", domain.RoleAdministrator)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/auth/me", nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me domain.User
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.Email != "admin@example.com" || me.Role != domain.RoleAdministrator {
		t.Fatalf("me: %+v", me)
	}

	// no token, no access
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/docks", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/docks", nil, "not-a-token")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", res.StatusCode)
	}

	// wrong password
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    "admin@example.com",
		"password": "WrongPass1",
	}, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad credentials, got %d: %s", res.StatusCode, string(data))
	}
}

func TestReservationFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, srv, "admin@example.com", domain.RoleAdministrator)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/docks", map[string]any{
		"number":  1,
		"type_id": 1,
	}, token)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create dock: %d %s", res.StatusCode, string(data))
	}
	var dock domain.Dock
	if err := json.Unmarshal(data, &dock); err != nil {
		t.Fatalf("unmarshal dock: %v", err)
	}

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(2 * time.Hour)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/reservations", map[string]any{
		"dock_id":      dock.ID,
		"window_start": start.Format(time.RFC3339),
		"window_end":   end.Format(time.RFC3339),
	}, token)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create reservation: %d %s", res.StatusCode, string(data))
	}
	var rv domain.Reservation
	if err := json.Unmarshal(data, &rv); err != nil {
		t.Fatalf("unmarshal reservation: %v", err)
	}

	// overlapping window maps to 400 with the unavailable code
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/reservations", map[string]any{
		"dock_id":      dock.ID,
		"window_start": start.Add(time.Hour).Format(time.RFC3339),
		"window_end":   end.Add(time.Hour).Format(time.RFC3339),
	}, token)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 overlap, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "unavailable" {
		t.Fatalf("expected unavailable code, got %s", code)
	}

	// cancelling without a reason is rejected
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/reservations/"+rv.ID+"/cancel", map[string]any{
		"reason": "",
	}, token)
	if res.StatusCode != http.StatusBadRequest && res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected rejection of blank reason, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/reservations/"+rv.ID+"/cancel", map[string]any{
		"reason": "plans changed",
	}, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cancel: %d %s", res.StatusCode, string(data))
	}
	var cancelled domain.Reservation
	if err := json.Unmarshal(data, &cancelled); err != nil {
		t.Fatalf("unmarshal cancelled: %v", err)
	}
	if cancelled.Status != domain.ReservationCancelled {
		t.Fatalf("status after cancel: %s", cancelled.Status)
	}

	// dock is free again
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/docks/"+dock.ID, nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get dock: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &dock)
	if dock.StateCode != domain.DockStateFree {
		t.Fatalf("dock state after cancel: %s", dock.StateCode)
	}
}

func TestRoleForbidden(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, srv, "planner@example.com", domain.RolePlanner)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/docks", map[string]any{
		"number":  1,
		"type_id": 1,
	}, token)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for planner, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "forbidden" {
		t.Fatalf("expected forbidden code, got %s", code)
	}
}

func TestNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, srv, "admin@example.com", domain.RoleAdministrator)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/docks/no-such-dock", nil, token)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "not_found" {
		t.Fatalf("expected not_found code, got %s", code)
	}
}

func TestOpenAPIDocumentIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	// the docs page loads the schema before the user logs in
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/openapi.json", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi.json without token: %d %s", res.StatusCode, string(data))
	}
	var doc struct {
		OpenAPI string `json:"openapi"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal openapi document: %v", err)
	}
	if doc.OpenAPI == "" {
		t.Fatal("missing openapi version field")
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, srv, "admin@example.com", domain.RoleAdministrator)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/docks", map[string]any{
		"number":  1,
		"type_id": 1,
	}, token)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create dock: %d %s", res.StatusCode, string(data))
	}
	var dock domain.Dock
	_ = json.Unmarshal(data, &dock)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)
	url := srv.URL + "/v1/docks/" + dock.ID + "/availability?start=" + start.Format(time.RFC3339) + "&end=" + end.Format(time.RFC3339)
	res, data = doJSON(t, srv.Client(), http.MethodGet, url, nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("availability: %d %s", res.StatusCode, string(data))
	}
	var av engine.Availability
	if err := json.Unmarshal(data, &av); err != nil {
		t.Fatalf("unmarshal availability: %v", err)
	}
	if !av.Available {
		t.Fatalf("expected available, got %+v", av)
	}
}
