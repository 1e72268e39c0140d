package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alexcherry/audiocast/internal/domain"
)

// Client extracts article content through the Firecrawl scrape API. It
// implements domain.ArticleFetcher.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Firecrawl client. The API key is required; callers
// that have no key should construct the orchestrator without a fetcher
// instead of passing an empty one.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("firecrawl api key is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// Fetch scrapes one URL and returns its main content as markdown. Empty
// extracted content is reported as domain.ErrNoContent.
func (c *Client) Fetch(ctx context.Context, url string) (*domain.Article, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scrape request returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode scrape response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("scrape rejected: %s", parsed.Error)
	}

	content := strings.TrimSpace(parsed.Data.Markdown)
	if content == "" {
		return nil, fmt.Errorf("%w for url %s", domain.ErrNoContent, url)
	}

	return &domain.Article{
		URL:     url,
		Content: content,
		Title:   parsed.Data.Metadata.Title,
	}, nil
}
