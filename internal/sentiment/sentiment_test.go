package sentiment

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brand-tracker/internal/models"
)

func TestKeywordScorer_Score(t *testing.T) {
	scorer := NewKeywordScorer()

	tests := []struct {
		name             string
		text             string
		expectedCategory string
		expectedScore    float64
	}{
		{
			name:             "Only positive words",
			text:             "I love this phone, it is great!",
			expectedCategory: models.SentimentPositive,
			expectedScore:    1.0,
		},
		{
			name:             "Only negative words",
			text:             "Terrible battery. Worst purchase.",
			expectedCategory: models.SentimentNegative,
			expectedScore:    -1.0,
		},
		{
			name:             "Mostly negative",
			text:             "Good screen but a bad battery and a problem with wifi",
			expectedCategory: models.SentimentNegative,
			expectedScore:    -1.0 / 3.0,
		},
		{
			name:             "Balanced is neutral",
			text:             "great camera, terrible price",
			expectedCategory: models.SentimentNeutral,
			expectedScore:    0,
		},
		{
			name:             "No listed words",
			text:             "Launch event scheduled for Tuesday",
			expectedCategory: models.SentimentNeutral,
			expectedScore:    0,
		},
		{
			name:             "Empty text",
			text:             "",
			expectedCategory: models.SentimentNeutral,
			expectedScore:    0,
		},
		{
			name:             "Whole words only",
			text:             "goodness badge",
			expectedCategory: models.SentimentNeutral,
			expectedScore:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.text)
			assert.Equal(t, tt.expectedCategory, result.Category)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
		})
	}
}

func TestRatingScorer_ScoreRated(t *testing.T) {
	scorer := NewRatingScorer(NewKeywordScorer())

	tests := []struct {
		name             string
		rating           float64
		text             string
		expectedCategory string
		expectedScore    float64
	}{
		{
			name:             "Five stars neutral text",
			rating:           5,
			text:             "arrived on tuesday",
			expectedCategory: models.SentimentPositive,
			expectedScore:    0.7,
		},
		{
			name:             "One star positive text",
			rating:           1,
			text:             "I love the color",
			expectedCategory: models.SentimentNegative,
			expectedScore:    -0.4,
		},
		{
			name:             "Three stars neutral text",
			rating:           3,
			text:             "it works",
			expectedCategory: models.SentimentNeutral,
			expectedScore:    0,
		},
		{
			name:             "Out of range rating is clamped",
			rating:           10,
			text:             "excellent",
			expectedCategory: models.SentimentPositive,
			expectedScore:    1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.ScoreRated(tt.rating, tt.text)
			assert.Equal(t, tt.expectedCategory, result.Category)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
		})
	}
}

func TestVaderScorer_Score(t *testing.T) {
	scorer := NewVaderScorer()

	positive := scorer.Score("I love this product, it is **great**!")
	assert.Equal(t, models.SentimentPositive, positive.Category)
	assert.Greater(t, positive.Score, PositiveThreshold)

	negative := scorer.Score("This is terrible and awful. I hate it.")
	assert.Equal(t, models.SentimentNegative, negative.Category)
	assert.Less(t, negative.Score, NegativeThreshold)

	empty := scorer.Score("   ")
	assert.Equal(t, models.Sentiment{Category: models.SentimentNeutral}, empty)
}

func TestVaderScorer_ConcurrentUse(t *testing.T) {
	scorer := NewVaderScorer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, models.SentimentPositive, scorer.Score("wonderful and happy").Category)
		}()
	}
	wg.Wait()
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Markdown emphasis and links",
			input:    "**bold** [link](https://example.com) see https://example.org",
			expected: "bold link see",
		},
		{
			name:     "Entities are unescaped",
			input:    "AT&T and Apple",
			expected: "AT&T and Apple",
		},
		{
			name:     "Whitespace collapsed",
			input:    "one\n\n   two",
			expected: "one two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlainText(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		expected Scorer
		wantErr  bool
	}{
		{name: "Default", engine: "", expected: &KeywordScorer{}},
		{name: "Keyword", engine: "keyword", expected: &KeywordScorer{}},
		{name: "Unknown", engine: "bert", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, err := New(tt.engine)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expected, scorer)
		})
	}

	scorer, err := New("VADER")
	require.NoError(t, err)
	assert.IsType(t, &VaderScorer{}, scorer)
}
