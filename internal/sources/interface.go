package sources

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Brand-Tracker/1.0"

// RawRecord is a source record as the upstream API returned it. Field names
// differ per platform; the normalizer knows where to look.
type RawRecord map[string]any

// Source interface defines the contract for all data sources
type Source interface {
	GetName() string
	IsEnabled() bool
	// Fetch returns at most limit records matching query, published within
	// since of now. A failed fetch returns an error and no partial records.
	Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error)
}

// htmlToText flattens an HTML fragment to whitespace-collapsed text
func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func cleanHTMLFields(rec RawRecord, fields ...string) {
	for _, field := range fields {
		if s, ok := rec[field].(string); ok {
			rec[field] = htmlToText(s)
		}
	}
}

func clampLimit(limit, min, max int) int {
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

func truncate(records []RawRecord, limit int) []RawRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
