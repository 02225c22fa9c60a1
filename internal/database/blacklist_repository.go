package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// PostgresBlacklistRepository persists feed blacklist entries using PostgreSQL.
type PostgresBlacklistRepository struct {
	db *sql.DB
}

// NewPostgresBlacklistRepository creates a new PostgreSQL blacklist repository.
func NewPostgresBlacklistRepository(db *sql.DB) *PostgresBlacklistRepository {
	return &PostgresBlacklistRepository{db: db}
}

// Upsert records a blacklist entry, replacing any existing entry for the
// same feed URL. FirstFailedAt is preserved across updates so the entry
// reflects when the feed first started failing.
func (r *PostgresBlacklistRepository) Upsert(ctx context.Context, entry models.BlacklistEntry) error {
	query := `
		INSERT INTO feed_blacklist (source_url, reason, failure_class, first_failed_at, retry_after, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (source_url) DO UPDATE SET
			reason = EXCLUDED.reason,
			failure_class = EXCLUDED.failure_class,
			retry_after = EXCLUDED.retry_after,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.SourceURL,
		entry.Reason,
		entry.FailureClass,
		entry.FirstFailedAt,
		entry.RetryAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert blacklist entry: %w", err)
	}

	return nil
}

// ListActive returns entries whose retry horizon is still in the future.
func (r *PostgresBlacklistRepository) ListActive(ctx context.Context, now time.Time) ([]models.BlacklistEntry, error) {
	query := `
		SELECT source_url, reason, failure_class, first_failed_at, retry_after
		FROM feed_blacklist
		WHERE retry_after > $1
		ORDER BY source_url
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer rows.Close()

	entries := []models.BlacklistEntry{}
	for rows.Next() {
		var entry models.BlacklistEntry
		err := rows.Scan(
			&entry.SourceURL,
			&entry.Reason,
			&entry.FailureClass,
			&entry.FirstFailedAt,
			&entry.RetryAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Delete removes the entry for a feed URL, if present.
func (r *PostgresBlacklistRepository) Delete(ctx context.Context, sourceURL string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM feed_blacklist WHERE source_url = $1", sourceURL)
	if err != nil {
		return fmt.Errorf("failed to delete blacklist entry: %w", err)
	}
	return nil
}

// DeleteExpired removes entries whose retry horizon has passed and returns
// the number of rows deleted.
func (r *PostgresBlacklistRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM feed_blacklist WHERE retry_after <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired blacklist entries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	return rows, nil
}
