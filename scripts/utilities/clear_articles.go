//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	fmt.Println("🗑️  Clearing articles and feed blacklist...")
	fmt.Println()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to start transaction: %v", err)
	}
	defer tx.Rollback()

	fmt.Print("Clearing articles... ")
	result, err := tx.Exec("DELETE FROM articles")
	if err != nil {
		log.Fatalf("Failed to clear articles: %v", err)
	}
	articleCount, _ := result.RowsAffected()
	fmt.Printf("✅ %d rows deleted\n", articleCount)

	fmt.Print("Clearing feed_blacklist... ")
	result, err = tx.Exec("DELETE FROM feed_blacklist")
	if err != nil {
		log.Fatalf("Failed to clear feed_blacklist: %v", err)
	}
	blacklistCount, _ := result.RowsAffected()
	fmt.Printf("✅ %d rows deleted\n", blacklistCount)

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	fmt.Println()
	fmt.Println("✅ Database cleared successfully!")
	fmt.Printf("  - Articles: %d deleted\n", articleCount)
	fmt.Printf("  - Blacklist entries: %d deleted\n", blacklistCount)
}
