package sources

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
)

// Platforms lists every platform an adapter exists for
var Platforms = []string{
	models.PlatformTwitter,
	models.PlatformReddit,
	models.PlatformNews,
	models.PlatformAmazon,
	models.PlatformHackerNews,
	models.PlatformRSS,
}

// New builds the adapter for one platform, enabled or not
func New(platform string, cfg *config.Config) (Source, error) {
	switch platform {
	case models.PlatformTwitter:
		return NewTwitterSource(cfg.TwitterBearerToken), nil
	case models.PlatformReddit:
		return NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret), nil
	case models.PlatformNews:
		return NewNewsSource(cfg.NewsAPIKey), nil
	case models.PlatformAmazon:
		return NewAmazonSource(cfg.AmazonDataset), nil
	case models.PlatformHackerNews:
		return NewHackerNewsSource(), nil
	case models.PlatformRSS:
		return NewRSSSource(cfg.RSSFeeds), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

// NewRegistry builds the adapters named in cfg.Platforms, in that order,
// dropping those that lack credentials. Unknown platform names are an error.
func NewRegistry(cfg *config.Config) ([]Source, error) {
	var enabled []Source

	for _, platform := range cfg.Platforms {
		source, err := New(platform, cfg)
		if err != nil {
			return nil, err
		}

		if !source.IsEnabled() {
			logrus.Warnf("Platform %s is not configured - skipping", platform)
			continue
		}
		logrus.Infof("Platform %s enabled", platform)
		enabled = append(enabled, source)
	}

	if len(enabled) == 0 {
		return nil, fmt.Errorf("none of the configured platforms %v are usable", cfg.Platforms)
	}

	return enabled, nil
}
