package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BrandConfig describes what to search for on behalf of one brand
type BrandConfig struct {
	Name        string   `yaml:"-"`
	Identifiers []string `yaml:"brand_identifiers"`
	Keywords    []string `yaml:"keywords"`
	Hashtags    []string `yaml:"hashtags"`
	MinPosts    int      `yaml:"min_posts"`
	Interval    int      `yaml:"interval"` // seconds
}

// BrandCatalog maps a configuration name (e.g. "apple") to its search terms
type BrandCatalog map[string]BrandConfig

type catalogFile struct {
	Brands map[string]BrandConfig `yaml:"brands"`
}

// DefaultBrands returns the built-in brand catalog
func DefaultBrands() BrandCatalog {
	return BrandCatalog{
		"apple": {
			Identifiers: []string{"Apple", "iPhone", "iPad", "MacBook", "iOS", "Tim Cook"},
			Keywords:    []string{"Apple products", "Apple store", "Genius Bar", "Apple support", "Apple event"},
			Hashtags:    []string{"apple", "iphone", "ipad", "macbook", "ios", "wwdc"},
			MinPosts:    100,
			Interval:    60,
		},
		"mcdonalds": {
			Identifiers: []string{"McDonald's", "McD", "Big Mac", "Happy Meal", "Golden Arches"},
			Keywords:    []string{"fast food", "McDonalds menu", "McDonalds restaurant", "drive thru"},
			Hashtags:    []string{"mcdonalds", "imlovinit", "bigmac", "happymeal"},
			MinPosts:    100,
			Interval:    60,
		},
		"nike": {
			Identifiers: []string{"Nike", "Just Do It", "Air Jordan", "Nike Air", "Swoosh"},
			Keywords:    []string{"Nike shoes", "Nike store", "sportswear", "athletic wear", "running shoes"},
			Hashtags:    []string{"nike", "justdoit", "nikeair", "nikeshoes", "sportswear"},
			MinPosts:    100,
			Interval:    60,
		},
		"starbucks": {
			Identifiers: []string{"Starbucks", "Frappuccino", "Pumpkin Spice Latte", "PSL", "Coffee"},
			Keywords:    []string{"Starbucks coffee", "coffee shop", "cafe", "barista", "coffee chain"},
			Hashtags:    []string{"starbucks", "frappuccino", "psl", "coffee", "coffeelover"},
			MinPosts:    100,
			Interval:    60,
		},
		"tesla": {
			Identifiers: []string{"Tesla", "Elon Musk", "Model S", "Model 3", "Model X", "Model Y", "Cybertruck"},
			Keywords:    []string{"electric cars", "Tesla stock", "supercharger", "autopilot", "EV"},
			Hashtags:    []string{"tesla", "elonmusk", "electriccars", "ev", "cybertruck"},
			MinPosts:    100,
			Interval:    60,
		},
		"custom": {
			Identifiers: []string{"Amazon"},
			Keywords:    []string{"e-commerce", "online shopping", "Amazon Prime", "AWS"},
			Hashtags:    []string{"amazon", "prime", "aws", "onlineshopping"},
			MinPosts:    100,
			Interval:    60,
		},
	}
}

// LoadBrandCatalog reads a YAML catalog of the form
//
//	brands:
//	  acme:
//	    brand_identifiers: [Acme]
//	    keywords: [anvils]
//	    hashtags: [acme]
func LoadBrandCatalog(path string) (BrandCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBrandCatalog(data)
}

// ParseBrandCatalog decodes a YAML brand catalog
func ParseBrandCatalog(data []byte) (BrandCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse brand catalog: %w", err)
	}

	catalog := make(BrandCatalog, len(file.Brands))
	for name, brand := range file.Brands {
		catalog[strings.ToLower(strings.TrimSpace(name))] = brand
	}
	return catalog, nil
}

// Resolve looks up the named brands, preserving order. Unknown names are an error.
func (c BrandCatalog) Resolve(names []string) ([]BrandConfig, error) {
	var brands []BrandConfig
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		brand, ok := c[key]
		if !ok {
			return nil, fmt.Errorf("unknown brand %q", name)
		}
		seen[key] = true
		brand.Name = key
		brands = append(brands, brand)
	}
	return brands, nil
}
