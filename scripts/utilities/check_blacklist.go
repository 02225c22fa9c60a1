//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT source_url, reason, failure_class, first_failed_at, retry_after
		FROM feed_blacklist
		ORDER BY retry_after
	`)
	if err != nil {
		log.Fatalf("Failed to query feed blacklist: %v", err)
	}
	defer rows.Close()

	fmt.Println("Feed blacklist:")

	now := time.Now()
	active := 0
	expired := 0
	for rows.Next() {
		var sourceURL, reason, class string
		var firstFailedAt, retryAfter time.Time
		if err := rows.Scan(&sourceURL, &reason, &class, &firstFailedAt, &retryAfter); err != nil {
			log.Printf("Failed to scan row: %v", err)
			continue
		}

		status := "⛔"
		if !now.Before(retryAfter) {
			status = "♻️"
			expired++
		} else {
			active++
		}

		fmt.Printf("\n%s %s\n", status, sourceURL)
		fmt.Printf("   Class: %s\n", class)
		fmt.Printf("   Reason: %s\n", reason)
		fmt.Printf("   First failed: %s\n", firstFailedAt.Format(time.RFC3339))
		fmt.Printf("   Retry after: %s\n", retryAfter.Format(time.RFC3339))
	}

	fmt.Printf("\nTotal: %d active, %d eligible for retry\n", active, expired)
}
