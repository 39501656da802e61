package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/sources"
)

func main() {
	query := flag.String("query", "", "search query (defaults to the first tracked identifier)")
	limit := flag.Int("limit", 10, "records to request per platform")
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if *query == "" {
		if ids := cfg.TrackedIdentifiers(); len(ids) > 0 {
			*query = ids[0]
		}
	}

	fmt.Println("Brand Tracker - Source Connectivity Probe")
	fmt.Println(strings.Repeat("=", 42))
	fmt.Printf("Query: %q  Limit: %d  Lookback: %v\n\n", *query, *limit, cfg.Lookback)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failed := 0
	for _, platform := range sources.Platforms {
		source, err := sources.New(platform, cfg)
		if err != nil {
			fmt.Printf("- %-12s ERROR: %v\n", platform, err)
			failed++
			continue
		}
		if !probe(ctx, source, *query, *limit, cfg.Lookback) {
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// probe fetches once from source and reports the outcome. Disabled sources
// are not failures.
func probe(ctx context.Context, source sources.Source, query string, limit int, since time.Duration) bool {
	name := source.GetName()
	if !source.IsEnabled() {
		fmt.Printf("- %-12s DISABLED (missing credentials or data)\n", name)
		return true
	}

	start := time.Now()
	records, err := source.Fetch(ctx, query, limit, since)
	if err != nil {
		fmt.Printf("- %-12s ERROR: %v\n", name, err)
		return false
	}

	fmt.Printf("- %-12s SUCCESS (%d records in %v)\n", name, len(records), time.Since(start).Round(time.Millisecond))
	if len(records) > 0 {
		fmt.Printf("    sample: %s\n", sample(records[0]))
	}
	return true
}

func sample(rec sources.RawRecord) string {
	for _, field := range []string{"title", "text", "content", "description", "body"} {
		if s, ok := rec[field].(string); ok && s != "" {
			if r := []rune(s); len(r) > 80 {
				return string(r[:80]) + "..."
			}
			return s
		}
	}
	return fmt.Sprintf("%v", rec["id"])
}
