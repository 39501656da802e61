package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/brandpulse/brand-tracker/internal/models"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// VaderScorer uses the VADER compound score on markdown-stripped text
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer creates a new VADER scorer
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of the text
func (v *VaderScorer) Score(text string) models.Sentiment {
	plain := PlainText(text)
	if plain == "" {
		return models.Sentiment{Category: models.SentimentNeutral, Score: 0}
	}

	score := clamp(v.analyzer.PolarityScores(plain).Compound)
	return models.Sentiment{Category: Categorize(score), Score: score}
}

// PlainText renders markdown and drops markup, links and bare URLs
func PlainText(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")

	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := tagPattern.ReplaceAllString(string(rendered), " ")
	plain = urlPattern.ReplaceAllString(html.UnescapeString(plain), "")

	return strings.Join(strings.Fields(plain), " ")
}
