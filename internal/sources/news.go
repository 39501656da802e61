package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const newsAPIURL = "https://newsapi.org/v2"

// NewsSource implements the NewsAPI "everything" search
type NewsSource struct {
	apiKey string
	client *resty.Client
}

type newsAPIResponse struct {
	Status       string      `json:"status"`
	Code         string      `json:"code"`
	Message      string      `json:"message"`
	TotalResults int         `json:"totalResults"`
	Articles     []RawRecord `json:"articles"`
}

// NewNewsSource creates a new news source
func NewNewsSource(apiKey string) *NewsSource {
	return &NewsSource{
		apiKey: apiKey,
		client: resty.New().
			SetBaseURL(newsAPIURL).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

// WithBaseURL points the source at a different API host
func (n *NewsSource) WithBaseURL(baseURL string) *NewsSource {
	n.client.SetBaseURL(baseURL)
	return n
}

func (n *NewsSource) GetName() string {
	return "news"
}

func (n *NewsSource) IsEnabled() bool {
	return n.apiKey != ""
}

func (n *NewsSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	if !n.IsEnabled() {
		logrus.Debug("News source disabled - missing API key")
		return nil, nil
	}

	now := time.Now().UTC()
	params := map[string]string{
		"q":        query,
		"to":       now.Format("2006-01-02T15:04:05"),
		"language": "en",
		"sortBy":   "publishedAt",
		"pageSize": strconv.Itoa(clampLimit(limit, 1, 100)),
	}
	if since > 0 {
		params["from"] = now.Add(-since).Format("2006-01-02T15:04:05")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", n.apiKey).
		SetQueryParams(params).
		Get("/everything")
	if err != nil {
		return nil, err
	}

	var newsResp newsAPIResponse
	if err := json.Unmarshal(resp.Body(), &newsResp); err != nil {
		return nil, fmt.Errorf("failed to parse news response (status %d): %w", resp.StatusCode(), err)
	}

	if resp.StatusCode() != 200 || newsResp.Status != "ok" {
		return nil, fmt.Errorf("news API returned status %d: %s %s", resp.StatusCode(), newsResp.Code, newsResp.Message)
	}

	for _, article := range newsResp.Articles {
		cleanHTMLFields(article, "title", "description", "content")
	}

	return truncate(newsResp.Articles, limit), nil
}
