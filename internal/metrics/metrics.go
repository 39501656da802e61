package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/brandpulse/brand-tracker/internal/models"
)

// BrandSentiment is the sentiment breakdown for one tracked brand
type BrandSentiment struct {
	Positive     int     `json:"positive"`
	Neutral      int     `json:"neutral"`
	Negative     int     `json:"negative"`
	AverageScore float64 `json:"average_score"`
}

type TwitterEngagement struct {
	TotalLikes    float64 `json:"total_likes"`
	TotalRetweets float64 `json:"total_retweets"`
	TotalReplies  float64 `json:"total_replies"`
}

type RedditEngagement struct {
	TotalUpvotes  float64 `json:"total_upvotes"`
	TotalComments float64 `json:"total_comments"`
}

type AmazonEngagement struct {
	TotalReviews       int     `json:"total_reviews"`
	TotalHelpfulVotes  float64 `json:"total_helpful_votes"`
	AverageRating      float64 `json:"average_rating"`
	VerifiedPurchases  int     `json:"verified_purchases"`
	VerifiedPercentage float64 `json:"verified_percentage"`
}

type NewsEngagement struct {
	TotalArticles int            `json:"total_articles"`
	Sources       map[string]int `json:"sources"`
}

type HackerNewsEngagement struct {
	TotalPoints   float64 `json:"total_points"`
	TotalComments float64 `json:"total_comments"`
}

// Engagement holds per-platform rollups shaped after each platform's signals
type Engagement struct {
	Twitter    TwitterEngagement    `json:"twitter"`
	Reddit     RedditEngagement     `json:"reddit"`
	Amazon     AmazonEngagement     `json:"amazon"`
	News       NewsEngagement       `json:"news"`
	HackerNews HackerNewsEngagement `json:"hackernews"`
}

// Metrics is an aggregate snapshot of a mention collection
type Metrics struct {
	GeneratedAt           time.Time                 `json:"timestamp,omitempty"`
	CycleNumber           int                       `json:"cycle_number,omitempty"`
	TotalPosts            int                       `json:"total_posts"`
	PlatformDistribution  map[string]int            `json:"platform_distribution"`
	BrandMentions         map[string]int            `json:"brand_mentions"`
	SentimentDistribution map[string]int            `json:"sentiment_distribution"`
	BrandSentiment        map[string]BrandSentiment `json:"brand_sentiment"`
	Engagement            Engagement                `json:"engagement"`
}

// Compute derives a snapshot from mentions. A mention counts toward a tracked
// brand when the brand string occurs in its content, ignoring case. Brands
// repeated in trackedBrands, in any case, count once under their first
// spelling. The result depends only on the inputs.
func Compute(mentions []models.Mention, trackedBrands []string) Metrics {
	trackedBrands = uniqueFold(trackedBrands)
	m := Metrics{
		TotalPosts:           len(mentions),
		PlatformDistribution: make(map[string]int),
		BrandMentions:        make(map[string]int, len(trackedBrands)),
		SentimentDistribution: map[string]int{
			models.SentimentPositive: 0,
			models.SentimentNeutral:  0,
			models.SentimentNegative: 0,
		},
		BrandSentiment: make(map[string]BrandSentiment, len(trackedBrands)),
		Engagement: Engagement{
			News: NewsEngagement{Sources: make(map[string]int)},
		},
	}

	brandScoreSums := make(map[string]float64, len(trackedBrands))
	lowerBrands := make([]string, len(trackedBrands))
	for i, brand := range trackedBrands {
		m.BrandMentions[brand] = 0
		m.BrandSentiment[brand] = BrandSentiment{}
		lowerBrands[i] = strings.ToLower(brand)
	}

	var ratingSum float64
	var rated, verified int

	for _, mention := range mentions {
		m.PlatformDistribution[mention.Platform]++

		category := mention.BrandTracker.Sentiment.Category
		if _, ok := m.SentimentDistribution[category]; !ok {
			category = models.SentimentNeutral
		}
		m.SentimentDistribution[category]++

		content := strings.ToLower(mention.Content)
		for i, brand := range trackedBrands {
			if lowerBrands[i] == "" || !strings.Contains(content, lowerBrands[i]) {
				continue
			}
			m.BrandMentions[brand]++
			bs := m.BrandSentiment[brand]
			switch category {
			case models.SentimentPositive:
				bs.Positive++
			case models.SentimentNegative:
				bs.Negative++
			default:
				bs.Neutral++
			}
			m.BrandSentiment[brand] = bs
			brandScoreSums[brand] += mention.BrandTracker.Sentiment.Score
		}

		e := mention.Engagement
		switch mention.Platform {
		case models.PlatformTwitter:
			m.Engagement.Twitter.TotalLikes += e["likes"]
			m.Engagement.Twitter.TotalRetweets += e["retweets"]
			m.Engagement.Twitter.TotalReplies += e["replies"]
		case models.PlatformReddit:
			m.Engagement.Reddit.TotalUpvotes += e["upvotes"]
			m.Engagement.Reddit.TotalComments += e["num_comments"]
		case models.PlatformAmazon:
			m.Engagement.Amazon.TotalReviews++
			m.Engagement.Amazon.TotalHelpfulVotes += e["helpful_votes"]
			if mention.Product != nil {
				ratingSum += mention.Product.Rating
				rated++
				if mention.Product.VerifiedPurchase {
					verified++
				}
			}
		case models.PlatformNews:
			m.Engagement.News.TotalArticles++
			source := mention.Source
			if source == "" {
				source = "Unknown"
			}
			m.Engagement.News.Sources[source]++
		case models.PlatformHackerNews:
			m.Engagement.HackerNews.TotalPoints += e["points"]
			m.Engagement.HackerNews.TotalComments += e["num_comments"]
		}
	}

	for _, brand := range trackedBrands {
		if count := m.BrandMentions[brand]; count > 0 {
			bs := m.BrandSentiment[brand]
			bs.AverageScore = brandScoreSums[brand] / float64(count)
			m.BrandSentiment[brand] = bs
		}
	}

	if rated > 0 {
		m.Engagement.Amazon.AverageRating = ratingSum / float64(rated)
	}
	m.Engagement.Amazon.VerifiedPurchases = verified
	if amazon := m.Engagement.Amazon.TotalReviews; amazon > 0 {
		m.Engagement.Amazon.VerifiedPercentage = float64(verified) / float64(amazon) * 100
	}

	return m
}

// RecentByPlatform returns the n newest mentions of each platform
func RecentByPlatform(mentions []models.Mention, n int) map[string][]models.Mention {
	byPlatform := make(map[string][]models.Mention)
	for _, mention := range mentions {
		byPlatform[mention.Platform] = append(byPlatform[mention.Platform], mention)
	}

	for platform, list := range byPlatform {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.After(list[j].Timestamp)
		})
		if n >= 0 && len(list) > n {
			list = list[:n]
		}
		byPlatform[platform] = list
	}
	return byPlatform
}

func uniqueFold(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// NegativeShare is the fraction of mentions labelled negative, zero when empty
func NegativeShare(mentions []models.Mention) float64 {
	if len(mentions) == 0 {
		return 0
	}
	negative := 0
	for _, mention := range mentions {
		if mention.BrandTracker.Sentiment.Category == models.SentimentNegative {
			negative++
		}
	}
	return float64(negative) / float64(len(mentions))
}
