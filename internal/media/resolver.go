// Package media resolves social media URLs into downloadable variants via
// the downloader API.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/mediagate/internal/types"
)

// DefaultEndpoint is the downloader API used when none is configured.
const DefaultEndpoint = "https://api.anbuinfosec.xyz/api/downloader/download"

// Resolver calls the downloader API.
type Resolver struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewResolver creates a Resolver. The client carries no timeout of its own;
// the transport defaults apply.
func NewResolver(endpoint, apiKey string) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Resolver{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
	}
}

// apiResponse mirrors the downloader API payload. Several fields arrive with
// inconsistent JSON types depending on the upstream extractor.
type apiResponse struct {
	Status    flag         `json:"status"`
	Success   flag         `json:"success"`
	Error     flag         `json:"error"`
	Title     string       `json:"title"`
	Source    string       `json:"source"`
	Author    string       `json:"author"`
	Duration  seconds      `json:"duration"`
	Thumbnail string       `json:"thumbnail"`
	Medias    []apiVariant `json:"medias"`
}

type apiVariant struct {
	Type    string `json:"type"`
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// flag is truthy the way a loosely typed API means it: true, non-zero
// numbers and non-empty strings or objects.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*f = false
	case bytes.Equal(data, []byte("true")):
		*f = true
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s != ""
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		*f = true
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parse flag %s: %w", data, err)
		}
		*f = n != 0
	}
	return nil
}

// seconds accepts a number or a numeric string; anything else is zero.
type seconds float64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = seconds(n)
	return nil
}

// Resolve turns url into a media set. It returns types.ErrMediaNotFound when
// the API reports failure or yields no variants; other errors are transport
// or decoding failures.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*types.MediaSet, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", rawURL)
	q.Set("apikey", r.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloader request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloader API error (status %d)", resp.StatusCode)
	}

	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return toMediaSet(&data)
}

func toMediaSet(data *apiResponse) (*types.MediaSet, error) {
	if !data.Status || !data.Success || data.Error || len(data.Medias) == 0 {
		return nil, types.ErrMediaNotFound
	}

	set := &types.MediaSet{
		Token:           types.NewSetToken(),
		Variants:        make([]types.MediaVariant, 0, len(data.Medias)),
		Title:           strings.TrimSpace(data.Title),
		Source:          strings.TrimSpace(data.Source),
		Author:          strings.TrimSpace(data.Author),
		DurationSeconds: float64(data.Duration),
		ThumbnailURL:    data.Thumbnail,
		ResolvedAt:      time.Now(),
	}
	for _, m := range data.Medias {
		set.Variants = append(set.Variants, types.MediaVariant{
			Kind:      types.ParseMediaKind(m.Type),
			RawType:   m.Type,
			Quality:   m.Quality,
			SourceURL: m.URL,
		})
	}
	return set, nil
}
