package shortener

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultEndpoint = "https://ulvis.net/API/write/get"

// Shortener resolves long article links through the ulvis.net API. It is
// strictly best-effort: any failure returns the original URL unchanged, so
// delivery never blocks on this service.
type Shortener struct {
	endpoint   string
	via        string
	httpClient *http.Client
}

func New(via string) *Shortener {
	return NewWithEndpoint(defaultEndpoint, via)
}

func NewWithEndpoint(endpoint, via string) *Shortener {
	return &Shortener{
		endpoint: endpoint,
		via:      via,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type apiResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	URL string `json:"url"`
}

// Shorten returns a short URL for longURL, or longURL itself on any failure.
func (s *Shortener) Shorten(ctx context.Context, longURL string) string {
	params := url.Values{}
	params.Set("url", longURL)
	params.Set("private", "1")
	params.Set("type", "json")
	if s.via != "" {
		params.Set("via", s.via)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return longURL
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("URL shortener unreachable", "url", longURL, "error", err)
		return longURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("URL shortener returned non-200", "url", longURL, "status", resp.StatusCode)
		return longURL
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return longURL
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("URL shortener returned malformed body", "url", longURL, "error", err)
		return longURL
	}

	short := shortFromResponse(parsed)
	if short == "" {
		return longURL
	}
	return short
}

func shortFromResponse(parsed apiResponse) string {
	if parsed.Success && parsed.Data.URL != "" {
		return parsed.Data.URL
	}
	// Some responses carry the URL at the top level
	if parsed.URL != "" {
		return parsed.URL
	}
	return ""
}
