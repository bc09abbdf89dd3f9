package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAuthenticated_StaticCredential(t *testing.T) {
	s := NewAuthenticated("user-42", "tok-abc")
	if !s.IsAuthenticated() || s.Owner() != "user-42" {
		t.Fatalf("unexpected identity: auth=%v owner=%q", s.IsAuthenticated(), s.Owner())
	}
	tok, err := s.Token(context.Background())
	if err != nil || tok != "tok-abc" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}
	if err := s.Refresh(context.Background()); err != ErrNotRefreshable {
		t.Fatalf("Refresh should return ErrNotRefreshable, got %v", err)
	}
}

func newTokenServer(t *testing.T, calls *int32, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		var body struct {
			SessionID string `json:"session_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
			t.Errorf("bad exchange request: %v (%+v)", err, body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "anon-tok-" + string(rune('0'+n)),
			"expires_in": expiresIn,
		})
	}))
}

func TestAnonymous_ExchangesAndCachesToken(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 900)
	defer srv.Close()

	s := NewAnonymous(srv.URL, "sess-1", srv.Client())
	if s.IsAuthenticated() || s.Owner() != "sess-1" {
		t.Fatalf("unexpected identity: auth=%v owner=%q", s.IsAuthenticated(), s.Owner())
	}

	tok1, err := s.Token(context.Background())
	if err != nil || tok1 == "" {
		t.Fatalf("first Token(): %q, %v", tok1, err)
	}
	tok2, err := s.Token(context.Background())
	if err != nil || tok2 != tok1 {
		t.Fatalf("second Token() should be served from cache: %q vs %q, %v", tok2, tok1, err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one exchange, got %d", calls)
	}
}

func TestAnonymous_RefreshForcesNewToken(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 900)
	defer srv.Close()

	s := NewAnonymous(srv.URL, "", srv.Client())
	if s.Owner() == "" {
		t.Fatal("an empty session id should be replaced with a generated one")
	}

	tok1, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token(): %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh(): %v", err)
	}
	tok2, err := s.Token(context.Background())
	if err != nil || tok2 == tok1 {
		t.Fatalf("expected a fresh token after Refresh, got %q (was %q), %v", tok2, tok1, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected exactly two exchanges, got %d", calls)
	}
}

func TestAnonymous_ExpiredTokenIsReExchanged(t *testing.T) {
	var calls int32
	// expires_in of 1s is inside the expiry slack, so the cached token is
	// treated as already stale on the next call.
	srv := newTokenServer(t, &calls, 1)
	defer srv.Close()

	s := NewAnonymous(srv.URL, "sess-2", srv.Client())
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("first Token(): %v", err)
	}
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("second Token(): %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("stale token should trigger a second exchange, got %d calls", calls)
	}
}

func TestAnonymous_ExchangeFailures(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	s := NewAnonymous(bad.URL, "sess-3", bad.Client())
	if _, err := s.Token(context.Background()); err == nil {
		t.Fatal("expected an error from a 503 exchange")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "", "expires_in": 60})
	}))
	defer empty.Close()

	s2 := NewAnonymous(empty.URL, "sess-4", empty.Client())
	if _, err := s2.Token(context.Background()); err == nil {
		t.Fatal("expected an error for an empty token")
	}
}

func TestAnonymous_ContextCancellation(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	s := NewAnonymous(slow.URL, "sess-5", slow.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Token(ctx); err == nil {
		t.Fatal("expected a context deadline error")
	}
}
