package models

import "time"

// Known platforms. The set is open: adapters may report any platform name.
const (
	PlatformTwitter    = "twitter"
	PlatformReddit     = "reddit"
	PlatformNews       = "news"
	PlatformAmazon     = "amazon"
	PlatformHackerNews = "hackernews"
	PlatformRSS        = "rss"
)

// Term types describe which configured list produced a match.
const (
	TermBrand   = "brand"
	TermKeyword = "keyword"
	TermHashtag = "hashtag"
)

// Sentiment categories
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Sentiment is the scorer output attached to every mention at ingestion
type Sentiment struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// BrandTracker records why a mention was collected and how it was scored
type BrandTracker struct {
	MatchedTerm string    `json:"matched_term"`
	TermType    string    `json:"term_type"`
	Sentiment   Sentiment `json:"sentiment"`
}

// Product carries review-specific fields for marketplace platforms
type Product struct {
	Name             string  `json:"name,omitempty"`
	Rating           float64 `json:"rating"`
	VerifiedPurchase bool    `json:"verified_purchase"`
}

// Mention represents a single piece of collected content normalized across platforms
type Mention struct {
	ID                  string             `json:"id"`
	Platform            string             `json:"platform"`
	Brand               string             `json:"brand"`
	Content             string             `json:"content"`
	Title               string             `json:"title,omitempty"`
	Author              string             `json:"user,omitempty"`
	URL                 string             `json:"url,omitempty"`
	Source              string             `json:"source,omitempty"` // news outlet, subreddit, feed
	Timestamp           time.Time          `json:"timestamp"`
	CollectionTimestamp time.Time          `json:"collection_timestamp"`
	Engagement          map[string]float64 `json:"engagement_metrics,omitempty"`
	Product             *Product           `json:"product,omitempty"`
	BrandTracker        BrandTracker       `json:"brand_tracker"`
}

// Metadata summarizes a persisted result document. It is derived from the
// posts on every save and never edited by hand.
type Metadata struct {
	LastUpdated     time.Time      `json:"last_updated"`
	TotalPosts      int            `json:"total_posts"`
	Platforms       map[string]int `json:"platforms"`
	DashboardUpdate bool           `json:"dashboard_update"`
}

// Document is the persisted result store shape read by dashboards
type Document struct {
	Metadata Metadata  `json:"metadata"`
	Posts    []Mention `json:"posts"`
}

// CycleStats is the diagnostic record of one collection cycle
type CycleStats struct {
	CycleNumber    int               `json:"cycle_number"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration"`
	PlatformCounts map[string]int    `json:"per_platform_counts"`
	Errors         map[string]string `json:"errors"`
	Skipped        int               `json:"skipped_records"`
	NewMentions    int               `json:"new_mentions"`
	TotalMentions  int               `json:"total_mentions"`
	Saved          bool              `json:"saved"`
}

// Report represents a periodic brand report
type Report struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	Period        string         `json:"period"`
	TotalMentions int            `json:"total_mentions"`
	Mentions      []Mention      `json:"mentions"`
	Platforms     map[string]int `json:"platforms"`
	Sentiment     map[string]int `json:"sentiment"`
	Markdown      string         `json:"markdown"`
}

// Alert represents an urgent notification
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "critical", "urgent", "info"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Mention   *Mention  `json:"mention,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
