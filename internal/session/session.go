// Package session provides the credential used to talk to the remote
// Galligeo services. One interface covers both signed-in users (a persistent
// bearer token supplied at startup) and anonymous contributors (a short-lived
// token exchanged for the session id, refreshed on demand).
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotRefreshable is returned by Refresh on sessions whose credential is
// externally managed and cannot be renewed here.
var ErrNotRefreshable = errors.New("session: credential is not refreshable")

// expirySlack is subtracted from a token's lifetime so a token that is about
// to expire mid-request counts as already expired.
const expirySlack = 30 * time.Second

// Session is the capability set every remote call depends on.
type Session interface {
	// IsAuthenticated reports whether this is a signed-in user session.
	IsAuthenticated() bool
	// Owner returns the identity under which work records are namespaced.
	Owner() string
	// Token returns a bearer credential valid for at least the next few
	// seconds, obtaining one first if necessary.
	Token(ctx context.Context) (string, error)
	// Refresh discards any cached credential and obtains a fresh one.
	Refresh(ctx context.Context) error
}

// Authenticated is the signed-in variant: the bearer token is issued by the
// external auth service and handed to us whole; we never renew it.
type Authenticated struct {
	owner string
	token string
}

// NewAuthenticated builds a session for a signed-in user.
func NewAuthenticated(owner, token string) *Authenticated {
	return &Authenticated{owner: owner, token: token}
}

// IsAuthenticated always reports true.
func (a *Authenticated) IsAuthenticated() bool { return true }

// Owner returns the signed-in user identity.
func (a *Authenticated) Owner() string { return a.owner }

// Token returns the externally supplied bearer token.
func (a *Authenticated) Token(context.Context) (string, error) { return a.token, nil }

// Refresh fails: a persistent credential is renewed by signing in again, not
// by this process.
func (a *Authenticated) Refresh(context.Context) error { return ErrNotRefreshable }

// Anonymous is the anonymous-contributor variant. It exchanges a stable
// session id for a short-lived token at the auth endpoint and caches it until
// close to expiry. Safe for concurrent use.
type Anonymous struct {
	tokenURL  string
	sessionID string
	client    *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAnonymous builds an anonymous session against the given token-exchange
// endpoint. A fresh session id is generated when sessionID is empty.
func NewAnonymous(tokenURL, sessionID string, client *http.Client) *Anonymous {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Anonymous{
		tokenURL:  strings.TrimSpace(tokenURL),
		sessionID: sessionID,
		client:    client,
	}
}

// IsAuthenticated always reports false.
func (s *Anonymous) IsAuthenticated() bool { return false }

// Owner returns the anonymous session id; records are namespaced under it.
func (s *Anonymous) Owner() string { return s.sessionID }

// Token returns the cached short-lived token, exchanging a new one when the
// cache is empty or within the expiry slack.
func (s *Anonymous) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.expires.Add(-expirySlack)) {
		return s.token, nil
	}
	if err := s.exchangeLocked(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

// Refresh drops the cached token and exchanges a fresh one immediately.
func (s *Anonymous) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return s.exchangeLocked(ctx)
}

// tokenResponse is the auth endpoint's payload.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// exchangeLocked performs the token exchange. Callers hold s.mu.
func (s *Anonymous) exchangeLocked(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"session_id": s.sessionID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("session: token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: token exchange returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("session: decode token response: %w", err)
	}
	if tr.Token == "" {
		return errors.New("session: token exchange returned an empty token")
	}
	s.token = tr.Token
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s.expires = time.Now().Add(ttl)
	return nil
}
