package merge

import (
	"sort"
	"time"

	"github.com/brandpulse/brand-tracker/internal/models"
)

// Retention bounds the persisted collection. A zero MaxAge disables the age
// cutoff; MaxCount must be positive.
type Retention struct {
	MaxAge   time.Duration
	MaxCount int
}

// Key is the identity of a mention across cycles
func Key(m models.Mention) string {
	return m.Platform + "\x00" + m.ID
}

// Merge combines the stored collection with a cycle's new mentions.
//
// Stored mentions always win over incoming duplicates, and within incoming the
// first occurrence wins. Mentions older than now-MaxAge are dropped before the
// result is sorted newest-first and truncated to MaxCount. Neither input is
// modified.
func Merge(existing, incoming []models.Mention, r Retention, now time.Time) []models.Mention {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]models.Mention, 0, len(existing)+len(incoming))

	var cutoff time.Time
	if r.MaxAge > 0 {
		cutoff = now.Add(-r.MaxAge)
	}

	add := func(m models.Mention) {
		key := Key(m)
		if seen[key] {
			return
		}
		seen[key] = true
		if !cutoff.IsZero() && m.Timestamp.Before(cutoff) {
			return
		}
		merged = append(merged, m)
	}

	for _, m := range existing {
		add(m)
	}
	for _, m := range incoming {
		add(m)
	}

	// Stable so equal timestamps keep existing-before-incoming order
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if r.MaxCount > 0 && len(merged) > r.MaxCount {
		merged = merged[:r.MaxCount]
	}

	return merged
}

// NewMentions returns the incoming mentions whose keys are not in existing,
// first occurrence only
func NewMentions(existing, incoming []models.Mention) []models.Mention {
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[Key(m)] = true
	}

	var fresh []models.Mention
	for _, m := range incoming {
		key := Key(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, m)
	}
	return fresh
}
