// Remote work-record store client: GET/POST of the per-user JSON document.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/session"
)

// RemoteDocument is the full per-owner document held by the remote store.
type RemoteDocument struct {
	WorkRecords map[string]domain.WorkRecord `json:"workRecords"`
	Settings    map[string]any               `json:"settings,omitempty"`
	LastUpdated time.Time                    `json:"lastUpdated"`
}

// upsertEnvelope is the write payload; the server merges the record into its
// copy of the document rather than expecting a full overwrite.
type upsertEnvelope struct {
	Operation string            `json:"operation"`
	Map       domain.WorkRecord `json:"map"`
}

// Client talks to the remote work-record store. All methods attach the
// session's bearer credential and map HTTP failures to the package's typed
// outcomes.
type Client struct {
	baseURL string
	sess    session.Session
	http    *http.Client
}

// NewClient constructs a work-record store client.
func NewClient(baseURL string, sess session.Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		sess:    sess,
		http:    httpClient,
	}
}

// FetchDocument retrieves the authenticated owner's full remote document.
func (c *Client) FetchDocument(ctx context.Context) (*RemoteDocument, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/data", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var doc RemoteDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrRemoteUnavailable, err)
	}
	return &doc, nil
}

// PushRecord sends one record upsert. The server performs its own merge, so
// concurrent writers for distinct maps never clobber each other's documents.
func (c *Client) PushRecord(ctx context.Context, rec *domain.WorkRecord) error {
	body, err := json.Marshal(upsertEnvelope{Operation: "upsert_map", Map: *rec})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/data", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	return mapStatus(resp.StatusCode)
}

// newRequest builds a request carrying the session credential.
func (c *Client) newRequest(ctx context.Context, method, url string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	tok, err := c.sess.Token(ctx)
	if err != nil {
		// A failed token exchange is a remote condition, not a caller bug.
		log.Debug().Err(err).Msg("gateway: credential unavailable")
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return req, nil
}

// mapStatus converts an HTTP status into the typed failure taxonomy.
func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrRemoteUnavailable, code)
	}
}
