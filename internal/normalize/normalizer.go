package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/sentiment"
)

// ErrNoContent is returned for records with no usable text
var ErrNoContent = errors.New("record has no content")

// idNamespace scopes synthesized mention ids
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("brand-tracker/mention"))

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// Term identifies the search that produced a record
type Term struct {
	Brand string
	Value string
	Type  string
}

// Normalizer maps raw platform records to Mentions
type Normalizer struct {
	rules  map[string]Rule
	scorer sentiment.Scorer
	rating *sentiment.RatingScorer
	now    func() time.Time
}

// New creates a normalizer with the built-in rules. A nil clock means time.Now.
func New(scorer sentiment.Scorer, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		rules:  Rules(),
		scorer: scorer,
		rating: sentiment.NewRatingScorer(scorer),
		now:    now,
	}
}

// Normalize maps one raw record to a Mention. The record is never modified.
func (n *Normalizer) Normalize(platform string, raw map[string]any, term Term) (models.Mention, error) {
	rule, ok := n.rules[platform]
	if !ok {
		rule = genericRule
	}

	title := firstString(raw, rule.Title)
	body := firstString(raw, rule.Body)
	content := body
	if rule.JoinTitle && title != "" && !strings.HasPrefix(body, title) {
		content = title + " " + body
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Mention{}, ErrNoContent
	}

	collectedAt := n.now().UTC()
	timestamp, parsed := firstTime(raw, rule.Timestamp)
	if !parsed {
		timestamp = collectedAt
	}

	mention := models.Mention{
		ID:                  mentionID(platform, rule, raw, content, timestamp, parsed),
		Platform:            platform,
		Brand:               term.Brand,
		Content:             content,
		Author:              firstString(raw, rule.Author),
		URL:                 firstString(raw, rule.URL),
		Title:               title,
		Source:              firstString(raw, rule.Source),
		Timestamp:           timestamp,
		CollectionTimestamp: collectedAt,
		BrandTracker: models.BrandTracker{
			MatchedTerm: term.Value,
			TermType:    term.Type,
		},
	}
	if len(rule.Engagement) > 0 {
		engagement := make(map[string]float64, len(rule.Engagement))
		for name, paths := range rule.Engagement {
			if v, ok := firstNumber(raw, paths); ok {
				engagement[name] = v
			}
		}
		if len(engagement) > 0 {
			mention.Engagement = engagement
		}
	}

	// Exactly one scorer call per mention
	if rating, ok := firstNumber(raw, rule.Rating); ok {
		mention.Product = &models.Product{
			Name:             firstString(raw, rule.ProductName),
			Rating:           rating,
			VerifiedPurchase: firstBool(raw, rule.Verified),
		}
		mention.BrandTracker.Sentiment = n.rating.ScoreRated(rating, content)
	} else {
		mention.BrandTracker.Sentiment = n.scorer.Score(content)
	}

	return mention, nil
}

// mentionID is "<platform>_<source id>" or, when the source has none, a
// name-based UUID over platform, content and the hour the content was created.
func mentionID(platform string, rule Rule, raw map[string]any, content string, ts time.Time, parsed bool) string {
	if sourceID := firstString(raw, rule.ID); sourceID != "" {
		if rule.HashID {
			sourceID = uuid.NewSHA1(idNamespace, []byte(platform+"|"+sourceID)).String()
		}
		return platform + "_" + sourceID
	}

	if len(rule.IDTimestamp) > 0 {
		ts, parsed = firstTime(raw, rule.IDTimestamp)
	}
	hour := ""
	if parsed {
		hour = ts.UTC().Truncate(time.Hour).Format(time.RFC3339)
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	return platform + "_" + uuid.NewSHA1(idNamespace, []byte(platform+"|"+normalized+"|"+hour)).String()
}

// lookup tries the literal key first ("reviews.text" as a CSV column), then
// walks nested objects segment by segment.
func lookup(raw map[string]any, path string) (any, bool) {
	if v, ok := raw[path]; ok && v != nil {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var current any = raw
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[segment]; !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if name, ok := t["name"]; ok {
			return asString(name)
		}
	}
	return ""
}

func firstString(raw map[string]any, paths []string) string {
	for _, path := range paths {
		if v, ok := lookup(raw, path); ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(raw map[string]any, paths []string) (float64, bool) {
	for _, path := range paths {
		v, ok := lookup(raw, path)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case int64:
			return float64(t), true
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f, true
			}
		}
	}
	return 0, false
}

func firstBool(raw map[string]any, paths []string) bool {
	for _, path := range paths {
		v, ok := lookup(raw, path)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1", "y":
				return true
			case "false", "no", "0", "n":
				return false
			}
		case float64:
			return t != 0
		}
	}
	return false
}

func firstTime(raw map[string]any, paths []string) (time.Time, bool) {
	for _, path := range paths {
		v, ok := lookup(raw, path)
		if !ok {
			continue
		}
		if ts, ok := parseTime(v); ok {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseTime accepts the layouts sources use plus unix seconds as a number or
// numeric string
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return unixTime(t)
	case int64:
		return time.Unix(t, 0), true
	case int:
		return time.Unix(int64(t), 0), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return unixTime(f)
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(f)
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func unixTime(seconds float64) (time.Time, bool) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

// String renders a term for logs
func (t Term) String() string {
	return fmt.Sprintf("%s/%s:%s", t.Brand, t.Type, t.Value)
}
