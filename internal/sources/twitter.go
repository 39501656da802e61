package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const twitterAPIURL = "https://api.twitter.com/2"

// Recent search only reaches back seven days
const twitterMaxLookback = 7*24*time.Hour - time.Minute

// TwitterSource implements Twitter/X API source
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
}

type twitterSearchResponse struct {
	Data []RawRecord `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetBaseURL(twitterAPIURL).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

// WithBaseURL points the source at a different API host
func (t *TwitterSource) WithBaseURL(baseURL string) *TwitterSource {
	t.client.SetBaseURL(baseURL)
	return t
}

func (t *TwitterSource) GetName() string {
	return "twitter"
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter source disabled - missing bearer token")
		return nil, nil
	}

	params := map[string]string{
		"query":        t.buildSearchQuery(query),
		"max_results":  strconv.Itoa(clampLimit(limit, 10, 100)),
		"tweet.fields": "created_at,author_id,public_metrics,referenced_tweets,lang",
	}
	if since > 0 {
		if since > twitterMaxLookback {
			since = twitterMaxLookback
		}
		params["start_time"] = time.Now().Add(-since).UTC().Format(time.RFC3339)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.bearerToken).
		SetQueryParams(params).
		Get("/tweets/search/recent")
	if err != nil {
		return nil, err
	}

	// Rate limited: return nothing for this term so the rest of the cycle proceeds
	if resp.StatusCode() == 429 {
		logrus.WithFields(logrus.Fields{
			"query": query,
			"reset": resp.Header().Get("x-rate-limit-reset"),
		}).Warn("Twitter API rate limit hit - skipping term")
		return []RawRecord{}, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	records := make([]RawRecord, 0, len(searchResp.Data))
	for _, tweet := range searchResp.Data {
		// Skip retweets to avoid duplicates
		if t.isRetweet(tweet) {
			continue
		}
		if id, ok := tweet["id"].(string); ok {
			tweet["url"] = "https://twitter.com/i/status/" + id
		}
		records = append(records, tweet)
	}

	logrus.Debugf("Twitter API returned %d tweets for '%s'", len(records), query)
	return truncate(records, limit), nil
}

func (t *TwitterSource) buildSearchQuery(term string) string {
	if strings.HasPrefix(term, "#") {
		return term
	}
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(term, `"`, ""))
}

func (t *TwitterSource) isRetweet(tweet RawRecord) bool {
	refs, _ := tweet["referenced_tweets"].([]any)
	for _, r := range refs {
		if ref, ok := r.(map[string]any); ok && ref["type"] == "retweeted" {
			return true
		}
	}
	return false
}
