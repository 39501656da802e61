package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brandpulse/brand-tracker/internal/models"
)

// RenderMarkdown formats a snapshot as the human-readable cycle report.
// Map-backed sections are emitted in sorted key order so output is stable.
func RenderMarkdown(m Metrics, cycle int, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Brand Tracking Report - Cycle %d\n\n", cycle)
	fmt.Fprintf(&b, "**Generated on:** %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total posts collected: **%d**\n", m.TotalPosts)
	b.WriteString("- Platform distribution:\n")
	for _, platform := range sortedKeys(m.PlatformDistribution) {
		count := m.PlatformDistribution[platform]
		fmt.Fprintf(&b, "  - %s: %d posts (%.1f%%)\n", capitalize(platform), count, percent(count, m.TotalPosts))
	}

	b.WriteString("\n## Brand Mentions\n\n")
	for _, brand := range sortedKeys(m.BrandMentions) {
		fmt.Fprintf(&b, "- **%s**: %d mentions\n", brand, m.BrandMentions[brand])
	}

	b.WriteString("\n## Sentiment Analysis\n\n")
	b.WriteString("### Overall Sentiment\n\n")
	b.WriteString("| Sentiment | Count | Percentage |\n")
	b.WriteString("|-----------|-------|------------|\n")
	for _, category := range []string{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		count := m.SentimentDistribution[category]
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", capitalize(category), count, percent(count, m.TotalPosts))
	}

	b.WriteString("\n### Brand Sentiment\n\n")
	b.WriteString("| Brand | Positive | Neutral | Negative | Average Score |\n")
	b.WriteString("|-------|----------|---------|----------|---------------|\n")
	brands := make([]string, 0, len(m.BrandSentiment))
	for brand := range m.BrandSentiment {
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	for _, brand := range brands {
		s := m.BrandSentiment[brand]
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %.2f |\n", brand, s.Positive, s.Neutral, s.Negative, s.AverageScore)
	}

	e := m.Engagement
	b.WriteString("\n## Engagement Metrics\n\n")
	if m.PlatformDistribution[models.PlatformTwitter] > 0 {
		b.WriteString("### Twitter Engagement\n\n")
		fmt.Fprintf(&b, "- Total likes: %.0f\n", e.Twitter.TotalLikes)
		fmt.Fprintf(&b, "- Total retweets: %.0f\n", e.Twitter.TotalRetweets)
		fmt.Fprintf(&b, "- Total replies: %.0f\n\n", e.Twitter.TotalReplies)
	}
	if m.PlatformDistribution[models.PlatformReddit] > 0 {
		b.WriteString("### Reddit Engagement\n\n")
		fmt.Fprintf(&b, "- Total upvotes: %.0f\n", e.Reddit.TotalUpvotes)
		fmt.Fprintf(&b, "- Total comments: %.0f\n\n", e.Reddit.TotalComments)
	}
	if e.Amazon.TotalReviews > 0 {
		b.WriteString("### Amazon Engagement\n\n")
		fmt.Fprintf(&b, "- Total helpful votes: %.0f\n", e.Amazon.TotalHelpfulVotes)
		fmt.Fprintf(&b, "- Average rating: %.1f/5.0\n", e.Amazon.AverageRating)
		fmt.Fprintf(&b, "- Verified purchases: %d (%.1f%%)\n\n", e.Amazon.VerifiedPurchases, e.Amazon.VerifiedPercentage)
	}
	if m.PlatformDistribution[models.PlatformHackerNews] > 0 {
		b.WriteString("### Hacker News Engagement\n\n")
		fmt.Fprintf(&b, "- Total points: %.0f\n", e.HackerNews.TotalPoints)
		fmt.Fprintf(&b, "- Total comments: %.0f\n\n", e.HackerNews.TotalComments)
	}
	if e.News.TotalArticles > 0 {
		b.WriteString("### News Sources\n\n")
		fmt.Fprintf(&b, "- Total articles: %d\n", e.News.TotalArticles)
		for _, source := range sortedKeys(e.News.Sources) {
			fmt.Fprintf(&b, "  - %s: %d\n", source, e.News.Sources[source])
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
