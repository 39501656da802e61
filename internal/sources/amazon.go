package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Column names vary between dataset exports; the first non-empty one wins
var (
	amazonDateColumns  = []string{"reviews.date", "date", "review.date", "reviews.dateAdded", "dateAdded"}
	amazonMatchColumns = []string{"reviews.text", "text", "review.text", "reviews.content", "content", "reviews.title", "title", "name", "brand"}
)

var amazonDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// AmazonSource is a mock review source backed by a product review CSV export.
// Review dates are replayed so that the newest review in the dataset lands at
// the time the dataset was loaded, keeping relative ordering intact.
type AmazonSource struct {
	datasetPath string
	now         func() time.Time

	once    sync.Once
	rows    []RawRecord
	loadErr error
}

// NewAmazonSource creates a mock Amazon review source
func NewAmazonSource(datasetPath string) *AmazonSource {
	return &AmazonSource{datasetPath: datasetPath, now: time.Now}
}

func (a *AmazonSource) GetName() string {
	return "amazon"
}

func (a *AmazonSource) IsEnabled() bool {
	return a.datasetPath != ""
}

func (a *AmazonSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]RawRecord, error) {
	if !a.IsEnabled() {
		logrus.Debug("Amazon source disabled - no dataset configured")
		return nil, nil
	}

	a.once.Do(func() {
		a.rows, a.loadErr = a.load()
		if a.loadErr == nil {
			logrus.Infof("Loaded %d reviews from %s", len(a.rows), a.datasetPath)
		}
	})
	if a.loadErr != nil {
		return nil, a.loadErr
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	cutoff := a.now().Add(-since)

	var records []RawRecord
	for _, row := range a.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !a.matches(row, needle) {
			continue
		}
		if replayed, ok := row["replayed_at"].(string); ok && since > 0 {
			if ts, err := time.Parse(time.RFC3339, replayed); err == nil && ts.Before(cutoff) {
				continue
			}
		}

		rec := make(RawRecord, len(row))
		for k, v := range row {
			rec[k] = v
		}
		records = append(records, rec)

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	return records, nil
}

func (a *AmazonSource) matches(row RawRecord, needle string) bool {
	if needle == "" {
		return true
	}
	for _, column := range amazonMatchColumns {
		if s, ok := row[column].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func (a *AmazonSource) load() ([]RawRecord, error) {
	f, err := os.Open(a.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open review dataset: %w", err)
	}
	defer f.Close()

	return a.parse(f)
}

func (a *AmazonSource) parse(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read review dataset header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []RawRecord
	var dates []time.Time
	var newest time.Time

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read review dataset: %w", err)
			}
			logrus.Warnf("Skipping malformed dataset row: %v", err)
			continue
		}

		row := make(RawRecord, len(header))
		for i, name := range header {
			if i < len(fields) && fields[i] != "" {
				row[name] = fields[i]
			}
		}

		date := a.reviewDate(row)
		if date.After(newest) {
			newest = date
		}
		rows = append(rows, row)
		dates = append(dates, date)
	}

	if !newest.IsZero() {
		offset := a.now().Sub(newest)
		for i, row := range rows {
			if !dates[i].IsZero() {
				row["replayed_at"] = dates[i].Add(offset).UTC().Format(time.RFC3339)
			}
		}
	}

	return rows, nil
}

func (a *AmazonSource) reviewDate(row RawRecord) time.Time {
	for _, column := range amazonDateColumns {
		value, ok := row[column].(string)
		if !ok || value == "" {
			continue
		}
		for _, layout := range amazonDateLayouts {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}
