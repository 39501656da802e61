package collector

import (
	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/normalize"
)

const (
	minPlatformQuota = 10
	minTermLimit     = 10
)

// searchTerm is one query sent to one platform
type searchTerm struct {
	normalize.Term
	Query string
}

// planTerms lists the searches a platform runs for the tracked brands.
// Hashtags are searched as "#tag" on twitter and as plain words on reddit;
// article and review sources do not support them.
func planTerms(platform string, brands []config.BrandConfig) []searchTerm {
	var terms []searchTerm
	add := func(brand, value, termType, query string) {
		terms = append(terms, searchTerm{
			Term:  normalize.Term{Brand: brand, Value: value, Type: termType},
			Query: query,
		})
	}

	for _, b := range brands {
		for _, id := range b.Identifiers {
			add(b.Name, id, models.TermBrand, id)
		}
		if platform == models.PlatformAmazon {
			continue
		}
		for _, kw := range b.Keywords {
			add(b.Name, kw, models.TermKeyword, kw)
		}
		switch platform {
		case models.PlatformTwitter:
			for _, tag := range b.Hashtags {
				add(b.Name, tag, models.TermHashtag, "#"+tag)
			}
		case models.PlatformReddit:
			for _, tag := range b.Hashtags {
				add(b.Name, tag, models.TermHashtag, tag)
			}
		}
	}
	return terms
}

// termLimit splits a cycle's post target across platforms, then across the
// terms of one platform, with floors so small targets still fetch something
func termLimit(minPosts, platforms, terms int) int {
	if platforms < 1 {
		platforms = 1
	}
	if terms < 1 {
		terms = 1
	}
	quota := max(minPosts/platforms, minPlatformQuota)
	return max(quota/terms, minTermLimit)
}
