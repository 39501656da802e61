package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL   = "https://oauth.reddit.com"
)

// RedditSource implements Reddit API source
type RedditSource struct {
	clientID     string
	clientSecret string
	client       *resty.Client
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data RawRecord `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret string) *RedditSource {
	return NewRedditSourceWithEndpoints(clientID, clientSecret, redditTokenURL, redditAPIURL)
}

// NewRedditSourceWithEndpoints creates a Reddit source against explicit token
// and API endpoints. Tokens are fetched and refreshed by the oauth2 transport.
func NewRedditSourceWithEndpoints(clientID, clientSecret, tokenURL, apiURL string) *RedditSource {
	oauthConf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		client: resty.NewWithClient(oauthConf.Client(context.Background())).
			SetBaseURL(apiURL).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"sort":     "new",
			"t":        "week",
			"type":     "link",
			"raw_json": "1",
			"limit":    strconv.Itoa(clampLimit(limit, 1, 100)),
		}).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("reddit search failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var searchResp redditSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Reddit response: %w", err)
	}

	cutoff := time.Now().Add(-since)
	records := make([]RawRecord, 0, len(searchResp.Data.Children))

	for _, child := range searchResp.Data.Children {
		post := child.Data
		if post == nil {
			continue
		}

		// Skip posts older than our cutoff
		if created, ok := post["created_utc"].(float64); ok && since > 0 {
			if time.Unix(int64(created), 0).Before(cutoff) {
				continue
			}
		}

		if permalink, ok := post["permalink"].(string); ok && permalink != "" {
			post["permalink_url"] = "https://www.reddit.com" + permalink
		}
		records = append(records, post)
	}

	return truncate(records, limit), nil
}
