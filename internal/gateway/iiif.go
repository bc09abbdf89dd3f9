// IIIF presentation client: manifest lookups against the digital library,
// with language-aware selection of localized label/value pairs.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// MapMetadata is the distilled manifest content the UI cares about.
type MapMetadata struct {
	ARK     string `json:"ark"`
	Title   string `json:"title"`
	Creator string `json:"creator,omitempty"`
	Date    string `json:"date,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// iiifManifest models the slice of a IIIF v3 Presentation manifest we read.
// Labels and values are localized: a map from BCP 47 language tag to strings.
type iiifManifest struct {
	Label    map[string][]string `json:"label"`
	Metadata []struct {
		Label map[string][]string `json:"label"`
		Value map[string][]string `json:"value"`
	} `json:"metadata"`
	Items []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"items"`
}

// IIIFClient fetches and distils manifests. No credential is needed; the
// library's presentation API is public.
type IIIFClient struct {
	baseURL string
	http    *http.Client
}

// NewIIIFClient constructs a manifest client rooted at baseURL
// (e.g. "https://gallica.bnf.fr/iiif/ark:/12148").
func NewIIIFClient(baseURL string, httpClient *http.Client) *IIIFClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &IIIFClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

// Manifest fetches the manifest for ark and extracts title, creator, and
// date in the language closest to prefer.
func (c *IIIFClient) Manifest(ctx context.Context, ark string, prefer language.Tag) (*MapMetadata, error) {
	ark = strings.Trim(strings.TrimSpace(ark), "/")
	if ark == "" {
		return nil, fmt.Errorf("iiif: empty ark identifier")
	}
	url := fmt.Sprintf("%s/%s/manifest.json", c.baseURL, ark)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

	var m iiifManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrRemoteUnavailable, err)
	}

	meta := &MapMetadata{
		ARK:   ark,
		Title: localized(m.Label, prefer),
	}
	for _, entry := range m.Metadata {
		switch strings.ToLower(localized(entry.Label, language.English)) {
		case "creator", "créateur", "auteur":
			meta.Creator = localized(entry.Value, prefer)
		case "date", "date d'édition":
			meta.Date = localized(entry.Value, prefer)
		}
	}
	if len(m.Items) > 0 {
		meta.Width = m.Items[0].Width
		meta.Height = m.Items[0].Height
	}
	return meta, nil
}

// localized picks the best value for prefer out of a IIIF language map,
// falling back to "none", then to any available language.
func localized(values map[string][]string, prefer language.Tag) string {
	if len(values) == 0 {
		return ""
	}
	tags := make([]language.Tag, 0, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "none" {
			continue
		}
		if tag, err := language.Parse(k); err == nil {
			tags = append(tags, tag)
			keys = append(keys, k)
		}
	}
	if len(tags) > 0 {
		matcher := language.NewMatcher(tags)
		if _, idx, conf := matcher.Match(prefer); conf > language.No {
			if vals := values[keys[idx]]; len(vals) > 0 {
				return vals[0]
			}
		}
	}
	if vals := values["none"]; len(vals) > 0 {
		return vals[0]
	}
	for _, vals := range values {
		if len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
