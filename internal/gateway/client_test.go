package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/session"
)

func TestClient_FetchDocument_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/data" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("missing bearer credential, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(RemoteDocument{
			WorkRecords: map[string]domain.WorkRecord{
				"btv1b53121232b": {MapID: "btv1b53121232b", Status: domain.StatusGeoreferenced},
			},
			LastUpdated: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, session.NewAuthenticated("u1", "tok-1"), srv.Client())
	doc, err := c.FetchDocument(context.Background())
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	rec, ok := doc.WorkRecords["btv1b53121232b"]
	if !ok || rec.Status != domain.StatusGeoreferenced {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestClient_PushRecord_SendsUpsertEnvelope(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/data" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, session.NewAuthenticated("u1", "tok-1"), srv.Client())
	rec := &domain.WorkRecord{MapID: "m1", Owner: "u1", Status: domain.StatusInProgress}
	if err := c.PushRecord(context.Background(), rec); err != nil {
		t.Fatalf("PushRecord: %v", err)
	}
	if seen["operation"] != "upsert_map" {
		t.Fatalf("expected upsert_map envelope, got %+v", seen)
	}
	m, _ := seen["map"].(map[string]any)
	if m == nil || m["map_id"] != "m1" {
		t.Fatalf("record missing from envelope: %+v", seen)
	}
}

func TestClient_StatusTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrRemoteUnavailable},
		{http.StatusBadGateway, ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, session.NewAuthenticated("u1", "t"), srv.Client())
		err := c.PushRecord(context.Background(), &domain.WorkRecord{MapID: "m"})
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
		srv.Close()
	}
}

func TestClient_NetworkErrorIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, session.NewAuthenticated("u1", "t"), nil)
	if err := c.PushRecord(context.Background(), &domain.WorkRecord{MapID: "m"}); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if _, err := c.FetchDocument(context.Background()); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestClient_CredentialFailureIsUnauthorized(t *testing.T) {
	// An anonymous session whose token endpoint is unreachable cannot build
	// a credential at all.
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	sess := session.NewAnonymous(dead.URL, "sess-1", nil)
	c := NewClient("http://127.0.0.1:0", sess, nil)
	if err := c.PushRecord(context.Background(), &domain.WorkRecord{MapID: "m"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
