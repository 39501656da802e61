package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const hackerNewsSearchURL = "https://hn.algolia.com/api/v1"

// HackerNewsSource implements Hacker News search through the Algolia API
type HackerNewsSource struct {
	client *resty.Client
}

type hackerNewsSearchResponse struct {
	Hits []RawRecord `json:"hits"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetBaseURL(hackerNewsSearchURL).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

// WithBaseURL points the source at a different API host
func (h *HackerNewsSource) WithBaseURL(baseURL string) *HackerNewsSource {
	h.client.SetBaseURL(baseURL)
	return h
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News search doesn't require authentication
}

func (h *HackerNewsSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	params := map[string]string{
		"query":       query,
		"tags":        "(story,comment)",
		"hitsPerPage": strconv.Itoa(clampLimit(limit, 1, 1000)),
	}
	if since > 0 {
		params["numericFilters"] = fmt.Sprintf("created_at_i>%d", time.Now().Add(-since).Unix())
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/search_by_date")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d", resp.StatusCode())
	}

	var searchResp hackerNewsSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Hacker News response: %w", err)
	}

	for _, hit := range searchResp.Hits {
		cleanHTMLFields(hit, "story_text", "comment_text")
		if id, ok := hit["objectID"].(string); ok {
			hit["item_url"] = "https://news.ycombinator.com/item?id=" + id
		}
	}

	return truncate(searchResp.Hits, limit), nil
}
