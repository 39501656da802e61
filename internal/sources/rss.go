package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// DefaultRSSFeed is a Google News search feed; {query} is replaced per term
const DefaultRSSFeed = "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en"

// RSSSource searches RSS/Atom feeds built from URL templates
type RSSSource struct {
	feeds  []string
	client *resty.Client
}

// NewRSSSource creates a feed source. Each feed is a URL template that may
// contain {query}; feeds without it are fetched as-is and filtered locally.
func NewRSSSource(feeds []string) *RSSSource {
	return &RSSSource{
		feeds: feeds,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (r *RSSSource) GetName() string {
	return "rss"
}

func (r *RSSSource) IsEnabled() bool {
	return len(r.feeds) > 0
}

func (r *RSSSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	if !r.IsEnabled() {
		return nil, nil
	}

	cutoff := time.Now().Add(-since)
	var records []RawRecord
	var failures []string

	for _, template := range r.feeds {
		items, err := r.fetchFeed(ctx, template, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Warnf("Failed to read feed %s: %v", template, err)
			failures = append(failures, err.Error())
			continue
		}

		for _, item := range items {
			if since > 0 {
				if published, ok := item["published"].(string); ok {
					if ts, err := time.Parse(time.RFC3339, published); err == nil && ts.Before(cutoff) {
						continue
					}
				}
			}
			records = append(records, item)
		}
	}

	if len(failures) == len(r.feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %s", len(failures), strings.Join(failures, "; "))
	}

	return truncate(records, limit), nil
}

func (r *RSSSource) fetchFeed(ctx context.Context, template, query string) ([]RawRecord, error) {
	templated := strings.Contains(template, "{query}")
	feedURL := strings.ReplaceAll(template, "{query}", url.QueryEscape(query))

	resp, err := r.client.R().
		SetContext(ctx).
		Get(feedURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	feed, err := gofeed.NewParser().ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	needle := strings.ToLower(query)
	var records []RawRecord

	for _, item := range feed.Items {
		rec := RawRecord{
			"guid":        item.GUID,
			"title":       htmlToText(item.Title),
			"description": htmlToText(item.Description),
			"link":        item.Link,
			"feed":        feed.Title,
		}
		if item.PublishedParsed != nil {
			rec["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			rec["published"] = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		if item.Author != nil {
			rec["author"] = item.Author.Name
		}

		// Static feeds carry everything; keep only items that mention the term
		if !templated {
			text := strings.ToLower(rec["title"].(string) + " " + rec["description"].(string))
			if !strings.Contains(text, needle) {
				continue
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
