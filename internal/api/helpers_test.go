package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stanza/internal/config"
	"stanza/internal/db"
	"stanza/internal/models"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, history []*models.ChatMessage) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.SessionTTL = time.Hour
	cfg.Auth.Admins = []config.AdminCredential{
		{Username: "ovid", Password: "metamorphoses"},
	}
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	return cfg
}

func newTestServer(t *testing.T, generator TextGenerator) *Server {
	t.Helper()

	cfg := testConfig(t)
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if generator == nil {
		generator = &stubGenerator{reply: "a verse"}
	}
	return NewServer(cfg, database, generator)
}

func doJSON(t *testing.T, s *Server, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

// register creates a persisted user through the public endpoint.
func register(t *testing.T, s *Server, username, password string) {
	t.Helper()

	rr := doJSON(t, s, http.MethodPost, "/api/v1/auth/register",
		`{"username":"`+username+`","password":"`+password+`"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body=%q", rr.Code, rr.Body.String())
	}
}

// login authenticates and returns the session cookie.
func login(t *testing.T, s *Server, username, password string) *http.Cookie {
	t.Helper()

	rr := doJSON(t, s, http.MethodPost, "/api/v1/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%q", rr.Code, rr.Body.String())
	}

	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie")
	return nil
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[ErrorResponse](t, rr).Error.Code
}
