package normalize

import "github.com/brandpulse/brand-tracker/internal/models"

// Rule says where a platform keeps each Mention field. Every list is a
// precedence order: the first path holding a non-empty value wins.
type Rule struct {
	ID []string
	// HashID hashes the source id instead of using it verbatim (URLs, GUIDs)
	HashID bool

	Title []string
	Body  []string
	// JoinTitle prefixes the body with the title to form the content
	JoinTitle bool

	Timestamp []string
	Author    []string
	URL       []string
	Source    []string

	// IDTimestamp is where the creation time for synthesized ids comes from
	// when Timestamp holds a derived time. Empty means Timestamp.
	IDTimestamp []string

	// Engagement maps a metric name to its candidate paths
	Engagement map[string][]string

	// Review fields; a rating switches scoring to the rating-weighted scorer
	ProductName []string
	Rating      []string
	Verified    []string
}

// Rules returns the built-in per-platform rules
func Rules() map[string]Rule {
	return map[string]Rule{
		models.PlatformTwitter: {
			ID:        []string{"id"},
			Body:      []string{"text", "full_text"},
			Timestamp: []string{"created_at"},
			Author:    []string{"username", "author_id"},
			URL:       []string{"url"},
			Engagement: map[string][]string{
				"likes":    {"public_metrics.like_count", "favorite_count"},
				"retweets": {"public_metrics.retweet_count", "retweet_count"},
				"replies":  {"public_metrics.reply_count", "reply_count"},
				"quotes":   {"public_metrics.quote_count", "quote_count"},
			},
		},
		models.PlatformReddit: {
			ID:        []string{"id"},
			Title:     []string{"title"},
			Body:      []string{"selftext", "body"},
			JoinTitle: true,
			Timestamp: []string{"created_utc", "created"},
			Author:    []string{"author"},
			URL:       []string{"permalink_url", "url"},
			Source:    []string{"subreddit_name_prefixed", "subreddit"},
			Engagement: map[string][]string{
				"upvotes":      {"score", "ups"},
				"num_comments": {"num_comments"},
				"upvote_ratio": {"upvote_ratio"},
			},
		},
		models.PlatformNews: {
			ID:        []string{"url"},
			HashID:    true,
			Title:     []string{"title"},
			Body:      []string{"description", "content"},
			JoinTitle: true,
			Timestamp: []string{"publishedAt", "published_at"},
			Author:    []string{"author"},
			URL:       []string{"url"},
			Source:    []string{"source.name", "source"},
		},
		models.PlatformAmazon: {
			// The dataset's bare "id" column is the product, not the review
			ID:          []string{"reviews.id", "review.id"},
			Title:       []string{"reviews.title", "title", "review.title", "reviews.summary"},
			Body:        []string{"reviews.text", "text", "review.text", "reviews.content", "content"},
			Timestamp:   []string{"replayed_at", "reviews.date", "date", "review.date", "reviews.dateAdded", "dateAdded"},
			// replayed_at shifts with every dataset load
			IDTimestamp: []string{"reviews.date", "date", "review.date", "reviews.dateAdded", "dateAdded"},
			Author:      []string{"reviews.username", "username", "reviews.name"},
			URL:         []string{"reviews.sourceURLs", "sourceURLs", "url"},
			Source:      []string{"brand"},
			ProductName: []string{"name", "product.name"},
			Rating:      []string{"reviews.rating", "rating", "review.rating", "reviews.stars", "stars"},
			Verified:    []string{"reviews.didPurchase", "didPurchase", "verified"},
			Engagement: map[string][]string{
				"helpful_votes": {"reviews.numHelpful", "numHelpful", "reviews.helpful", "helpful"},
			},
		},
		models.PlatformHackerNews: {
			ID:        []string{"objectID", "id"},
			Title:     []string{"title", "story_title"},
			Body:      []string{"story_text", "comment_text", "text"},
			JoinTitle: true,
			Timestamp: []string{"created_at_i", "created_at", "time"},
			Author:    []string{"author", "by"},
			URL:       []string{"item_url", "url", "story_url"},
			Engagement: map[string][]string{
				"points":       {"points", "score"},
				"num_comments": {"num_comments", "descendants"},
			},
		},
		models.PlatformRSS: {
			ID:        []string{"guid", "link"},
			HashID:    true,
			Title:     []string{"title"},
			Body:      []string{"description", "content"},
			JoinTitle: true,
			Timestamp: []string{"published", "updated"},
			Author:    []string{"author"},
			URL:       []string{"link"},
			Source:    []string{"feed"},
		},
	}
}

// genericRule handles platforms without a dedicated rule
var genericRule = Rule{
	ID:        []string{"id", "guid", "url"},
	Title:     []string{"title"},
	Body:      []string{"content", "text", "body", "description"},
	JoinTitle: true,
	Timestamp: []string{"timestamp", "created_at", "published_at", "date"},
	Author:    []string{"author", "user", "username"},
	URL:       []string{"url", "link"},
	Source:    []string{"source"},
}
