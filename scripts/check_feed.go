package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/ingestion"
)

// Fetches a single feed URL and reports what the ingestion pipeline would do
// with each entry: which parser handled the document, which entries survive
// URL validation, and which get skipped. Useful when onboarding a new source.
//
// Usage: go run scripts/check_feed.go <feed-url>
func main() {
	feedURL := "https://www.sciencedaily.com/rss/health_medicine.xml"
	if len(os.Args) > 1 {
		feedURL = os.Args[1]
	}

	fmt.Printf("Checking feed: %s\n\n", feedURL)

	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(http.MethodGet, feedURL, nil)
	if err != nil {
		fmt.Printf("ERROR creating request: %v\n", err)
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("ERROR fetching feed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("HTTP Status: %d\n", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("ERROR: unexpected status code: %d\n", resp.StatusCode)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("ERROR reading body: %v\n", err)
		return
	}
	fmt.Printf("Response body length: %d bytes\n\n", len(body))

	parserUsed := "strict"
	articles, err := ingestion.NewFeedParser().Parse(body)
	if err != nil {
		fmt.Printf("Strict parse failed: %v\n", err)
		fmt.Println("Retrying with the lenient parser...")
		parserUsed = "lenient"
		articles, err = ingestion.NewLenientParser().Parse(body)
		if err != nil {
			fmt.Printf("ERROR: lenient parse also failed: %v\n", err)
			fmt.Println("This source would be blacklisted as malformed.")
			return
		}
	}

	fmt.Printf("✓ Parsed with the %s parser\n", parserUsed)
	fmt.Printf("Total entries: %d\n\n", len(articles))

	if len(articles) == 0 {
		fmt.Println("WARNING: no entries found in feed!")
		return
	}

	validCount := 0
	skippedURL := 0

	fmt.Println("Checking each entry...")
	for i, a := range articles {
		fmt.Printf("\n[Entry %d]\n", i+1)
		fmt.Printf("  Title: %s\n", ingestion.NormalizeTitle(a.Title))
		fmt.Printf("  URL: %s\n", a.URL)
		if !a.PublishedAt.IsZero() {
			fmt.Printf("  Published: %s\n", a.PublishedAt.Format(time.RFC3339))
		}

		if err := ingestion.ValidateArticleURL(a.URL); err != nil {
			fmt.Printf("  ✗ SKIPPED: %v\n", err)
			skippedURL++
			continue
		}

		fmt.Printf("  ✓ VALID: would be ingested\n")
		validCount++
	}

	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Total entries in feed: %d\n", len(articles))
	fmt.Printf("Valid entries: %d\n", validCount)
	fmt.Printf("Skipped (invalid URL): %d\n", skippedURL)
}
