package sentiment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brandpulse/brand-tracker/internal/models"
)

// Category thresholds shared by every scorer
const (
	PositiveThreshold = 0.2
	NegativeThreshold = -0.2
)

// Scorer turns text into a sentiment label. Implementations must be safe for
// concurrent use.
type Scorer interface {
	Score(text string) models.Sentiment
}

// New returns the scorer for the named engine ("keyword" or "vader")
func New(engine string) (Scorer, error) {
	switch strings.ToLower(engine) {
	case "", "keyword":
		return NewKeywordScorer(), nil
	case "vader":
		return NewVaderScorer(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment engine %q", engine)
	}
}

// Categorize maps a score in [-1, 1] to a category
func Categorize(score float64) string {
	switch {
	case score > PositiveThreshold:
		return models.SentimentPositive
	case score < NegativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true, "awesome": true,
	"fantastic": true, "wonderful": true, "love": true, "best": true, "happy": true,
	"positive": true, "recommend": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "horrible": true, "poor": true,
	"worst": true, "hate": true, "disappointing": true, "disappointed": true,
	"negative": true, "problem": true, "issue": true, "fail": true,
}

// KeywordScorer counts hits against fixed positive and negative word lists
type KeywordScorer struct{}

// NewKeywordScorer creates a new keyword scorer
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

// Score returns (pos-neg)/(pos+neg), or a neutral zero when no listed word appears
func (k *KeywordScorer) Score(text string) models.Sentiment {
	var pos, neg int
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if positiveWords[word] {
			pos++
		} else if negativeWords[word] {
			neg++
		}
	}

	if pos+neg == 0 {
		return models.Sentiment{Category: models.SentimentNeutral, Score: 0}
	}

	score := clamp(float64(pos-neg) / float64(pos+neg))
	return models.Sentiment{Category: Categorize(score), Score: score}
}

// RatingScorer blends a star rating with a text score for review records
type RatingScorer struct {
	Text Scorer
}

// NewRatingScorer wraps a text scorer
func NewRatingScorer(text Scorer) *RatingScorer {
	return &RatingScorer{Text: text}
}

// ScoreRated maps a 1-5 rating onto [-1, 1] and weighs it 0.7 against 0.3 for the text
func (r *RatingScorer) ScoreRated(rating float64, text string) models.Sentiment {
	ratingScore := clamp((rating - 3) / 2)
	textScore := r.Text.Score(text).Score
	score := clamp(0.7*ratingScore + 0.3*textScore)
	return models.Sentiment{Category: Categorize(score), Score: score}
}

// Score scores text alone
func (r *RatingScorer) Score(text string) models.Sentiment {
	return r.Text.Score(text)
}
