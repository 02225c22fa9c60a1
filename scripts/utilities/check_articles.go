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
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Check article count
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		log.Fatalf("failed to count articles: %v", err)
	}
	fmt.Printf("Total articles: %d\n", count)

	// Check recent articles
	rows, err := db.Query(`
		SELECT id, title, source, category, created_at
		FROM articles
		ORDER BY created_at DESC
		LIMIT 5
	`)
	if err != nil {
		log.Fatalf("failed to query articles: %v", err)
	}
	defer rows.Close()

	fmt.Println("\nRecent articles:")
	for rows.Next() {
		var id int64
		var title, source, category string
		var createdAt time.Time
		if err := rows.Scan(&id, &title, &source, &category, &createdAt); err != nil {
			log.Printf("error scanning row: %v", err)
			continue
		}
		titlePreview := title
		if len(title) > 60 {
			titlePreview = title[:60] + "..."
		}
		fmt.Printf("- #%d: %s (%s/%s, age: %s)\n",
			id, titlePreview, source, category, time.Since(createdAt).Round(time.Second))
	}

	// Category breakdown
	catRows, err := db.Query(`
		SELECT category, COUNT(*)
		FROM articles
		GROUP BY category
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		log.Fatalf("failed to query categories: %v", err)
	}
	defer catRows.Close()

	fmt.Println("\nArticles by category:")
	for catRows.Next() {
		var category string
		var n int
		if err := catRows.Scan(&category, &n); err != nil {
			log.Printf("error scanning row: %v", err)
			continue
		}
		fmt.Printf("- %-12s %d\n", category, n)
	}

	// Duplicate titles slipping past the similarity gate show up here
	var dupTitles int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT LOWER(title) FROM articles
			GROUP BY LOWER(title) HAVING COUNT(*) > 1
		) d
	`).Scan(&dupTitles)
	if err != nil {
		log.Fatalf("failed to count duplicate titles: %v", err)
	}
	fmt.Printf("\nDuplicated titles: %d\n", dupTitles)
}
