package api

import (
	"errors"
	"net/http"
	"testing"
)

func issueKey(t *testing.T, s *Server, admin *http.Cookie, body string) string {
	t.Helper()

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/keys", body, []*http.Cookie{admin})
	if rr.Code != http.StatusCreated {
		t.Fatalf("issue key status = %d, body=%q", rr.Code, rr.Body.String())
	}
	key := decodeBody[GenerateKeyResponse](t, rr).Key
	if key == "" {
		t.Fatalf("issued key is empty")
	}
	return key
}

func TestChatDeniedWithoutKey(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "alice", "abcd")
	cookie := login(t, s, "alice", "abcd")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/chat",
		`{"prompt":"write me a poem"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusForbidden, rr.Body.String())
	}
	if code := errorCode(t, rr); code != ErrCodeAccessDenied {
		t.Fatalf("error.code = %q, want %q", code, ErrCodeAccessDenied)
	}
}

func TestChatAllowedForAdminWithoutKey(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "an ode"})
	admin := login(t, s, "ovid", "metamorphoses")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/chat",
		`{"prompt":"write me a poem"}`, []*http.Cookie{admin})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	if got := decodeBody[ChatResponse](t, rr).Response; got != "an ode" {
		t.Fatalf("response = %q, want %q", got, "an ode")
	}
}

func TestVerifyKeyThenChat(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "a couplet"})
	admin := login(t, s, "ovid", "metamorphoses")
	key := issueKey(t, s, admin, `{}`)

	register(t, s, "alice", "abcd")
	cookie := login(t, s, "alice", "abcd")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/verify-key",
		`{"key":"`+key+`"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify-key status = %d, body=%q", rr.Code, rr.Body.String())
	}

	// The saved key is picked up on the next session load.
	cookie = login(t, s, "alice", "abcd")
	rr = doJSON(t, s, http.MethodPost, "/api/v1/ai/chat",
		`{"prompt":"write me a poem"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body=%q", rr.Code, rr.Body.String())
	}
	if got := decodeBody[ChatResponse](t, rr).Response; got != "a couplet" {
		t.Fatalf("response = %q, want %q", got, "a couplet")
	}
}

func TestVerifyKeyRejectsUnknownKey(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "alice", "abcd")
	cookie := login(t, s, "alice", "abcd")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/verify-key",
		`{"key":"not-a-key"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if code := errorCode(t, rr); code != ErrCodeAccessDenied {
		t.Fatalf("error.code = %q, want %q", code, ErrCodeAccessDenied)
	}
}

func TestDisabledKeyStopsChat(t *testing.T) {
	s := newTestServer(t, nil)
	admin := login(t, s, "ovid", "metamorphoses")
	key := issueKey(t, s, admin, `{}`)

	register(t, s, "alice", "abcd")
	cookie := login(t, s, "alice", "abcd")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/verify-key",
		`{"key":"`+key+`"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify-key status = %d, body=%q", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s, http.MethodDelete, "/api/v1/ai/keys/"+key, "", []*http.Cookie{admin})
	if rr.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body=%q", rr.Code, rr.Body.String())
	}

	// The key is re-checked on every chat, so the saved copy no longer
	// grants access.
	cookie = login(t, s, "alice", "abcd")
	rr = doJSON(t, s, http.MethodPost, "/api/v1/ai/chat",
		`{"prompt":"write me a poem"}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("chat status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestDisableUnknownKey(t *testing.T) {
	s := newTestServer(t, nil)
	admin := login(t, s, "ovid", "metamorphoses")

	rr := doJSON(t, s, http.MethodDelete, "/api/v1/ai/keys/missing", "", []*http.Cookie{admin})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListKeysScopedToIssuer(t *testing.T) {
	s := newTestServer(t, nil)
	admin := login(t, s, "ovid", "metamorphoses")
	first := issueKey(t, s, admin, `{}`)
	second := issueKey(t, s, admin, `{"dailyLimit":5}`)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/ai/keys", "", []*http.Cookie{admin})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}

	list := decodeBody[map[string][]map[string]any](t, rr)
	keys := list["keys"]
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k["key"].(string)] = true
	}
	if !seen[first] || !seen[second] {
		t.Fatalf("listed keys %v missing issued keys", seen)
	}
}

func TestKeyRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	register(t, s, "alice", "abcd")
	cookie := login(t, s, "alice", "abcd")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/keys", `{}`, []*http.Cookie{cookie})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestChatBackendFailure(t *testing.T) {
	s := newTestServer(t, &stubGenerator{err: errors.New("upstream down")})
	admin := login(t, s, "ovid", "metamorphoses")

	rr := doJSON(t, s, http.MethodPost, "/api/v1/ai/chat",
		`{"prompt":"write me a poem"}`, []*http.Cookie{admin})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadGateway, rr.Body.String())
	}
}
