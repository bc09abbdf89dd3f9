// Compute client: submits control points and a clipping polygon to the
// external georeferencing API, which fits the transform and generates tiles.
// This is the one long-running outbound call in the system; it is bounded by
// a client-side deadline and its failures are user-visible.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// SubmitRequest carries everything the compute API needs for one map.
type SubmitRequest struct {
	ARKURL      string                    `json:"gallica_ark_url"`
	ImageWidth  int                       `json:"image_width"`
	ImageHeight int                       `json:"image_height"`
	GCPPairs    []domain.ControlPointPair `json:"gcp_pairs"`
	Clipping    []domain.GeoPoint         `json:"clipping_polygon,omitempty"`
}

// SubmitResult is the compute API's success payload.
type SubmitResult struct {
	TilesURL string `json:"tiles_url"`
}

// ComputeClient performs georeferencing submissions.
type ComputeClient struct {
	baseURL string
	sess    interface {
		Token(ctx context.Context) (string, error)
	}
	http    *http.Client
	timeout time.Duration
}

// NewComputeClient constructs a compute client. timeout caps one submission
// end to end (transform fit plus tile generation).
func NewComputeClient(baseURL string, sess interface {
	Token(ctx context.Context) (string, error)
}, httpClient *http.Client, timeout time.Duration) *ComputeClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ComputeClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		sess:    sess,
		http:    httpClient,
		timeout: timeout,
	}
}

// Submit sends the georeferencing request and waits for the tile URL
// template. Deadline expiry surfaces as ErrSubmitTimeout; a rejected
// credential as ErrUnauthorized; anything else as ErrRemoteUnavailable.
func (c *ComputeClient) Submit(ctx context.Context, sr SubmitRequest) (*SubmitResult, error) {
	if len(sr.GCPPairs) == 0 {
		return nil, errors.New("gateway: submission needs at least one complete control point pair")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/georeference", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tok, err := c.sess.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			return nil, ErrSubmitTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var out SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode submission result: %v", ErrRemoteUnavailable, err)
	}
	if out.TilesURL == "" {
		return nil, fmt.Errorf("%w: submission succeeded without a tile url", ErrRemoteUnavailable)
	}
	return &out, nil
}
