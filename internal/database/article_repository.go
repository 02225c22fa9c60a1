package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// PostgresArticleRepository implements article persistence using PostgreSQL.
type PostgresArticleRepository struct {
	db *sql.DB
}

// NewPostgresArticleRepository creates a new PostgreSQL article repository.
func NewPostgresArticleRepository(db *sql.DB) *PostgresArticleRepository {
	return &PostgresArticleRepository{db: db}
}

const articleColumns = `id, title, url, summary, source, category, subcategory, tags, author, image_url, published_at, created_at`

// InsertIfAbsent stores an article unless its URL is already present.
// It reports whether a new row was written.
func (r *PostgresArticleRepository) InsertIfAbsent(ctx context.Context, article models.Article) (bool, error) {
	query := `
		INSERT INTO articles (
			title, url, summary, source, category, subcategory,
			tags, author, image_url, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (url) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		article.Title,
		article.URL,
		article.Summary,
		article.Source,
		article.Category,
		article.Subcategory,
		pq.Array(article.Tags),
		article.Author,
		article.ImageURL,
		article.PublishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows == 1, nil
}

// RecentURLsAndTitles returns the URL and title of every article created
// since the given time. The pipeline uses this to seed its duplicate index.
func (r *PostgresArticleRepository) RecentURLsAndTitles(ctx context.Context, since time.Time) ([]models.URLTitle, error) {
	query := `
		SELECT url, title
		FROM articles
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}
	defer rows.Close()

	results := []models.URLTitle{}
	for rows.Next() {
		var ut models.URLTitle
		if err := rows.Scan(&ut.URL, &ut.Title); err != nil {
			return nil, fmt.Errorf("failed to scan url/title: %w", err)
		}
		results = append(results, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// Search retrieves articles matching the given query with pagination. Text
// search covers title, summary, and tags.
func (r *PostgresArticleRepository) Search(ctx context.Context, query models.ArticleQuery) (*models.PaginatedArticles, error) {
	query.Normalize()

	conditions, args := buildArticleFilter(query)

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	direction := "DESC"
	if query.Sort == models.SortAscending {
		direction = "ASC"
	}

	argIdx := len(args) + 1
	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM articles
		%s
		ORDER BY published_at %s, id %s
		LIMIT $%d OFFSET $%d
	`, articleColumns, whereClause, direction, direction, argIdx, argIdx+1)

	args = append(args, query.Limit, query.Offset())

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}

	page := models.NewPaginatedArticles(articles, total, query)
	return &page, nil
}

// buildArticleFilter constructs WHERE conditions from an ArticleQuery.
func buildArticleFilter(q models.ArticleQuery) ([]string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	if q.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR summary ILIKE $%d OR array_to_string(tags, ' ') ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+q.Search+"%")
		argIdx++
	}

	if q.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, q.Category)
		argIdx++
	}

	if q.Subcategory != "" {
		conditions = append(conditions, fmt.Sprintf("subcategory = $%d", argIdx))
		args = append(args, q.Subcategory)
		argIdx++
	}

	if q.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argIdx))
		args = append(args, q.Tag)
		argIdx++
	}

	if q.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("published_at >= $%d", argIdx))
		args = append(args, *q.StartDate)
		argIdx++
	}

	if q.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("published_at <= $%d", argIdx))
		args = append(args, *q.EndDate)
		argIdx++
	}

	return conditions, args
}

// GetByURL retrieves an article by its URL.
func (r *PostgresArticleRepository) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM articles
		WHERE url = $1
	`, articleColumns)

	article, err := scanArticleRow(r.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article by URL: %w", err)
	}

	return article, nil
}

// CountByCategorySince returns article counts per category for articles
// created since the given time.
func (r *PostgresArticleRepository) CountByCategorySince(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT category, COUNT(*)
		FROM articles
		WHERE created_at >= $1
		GROUP BY category
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// RecentByCategory returns the newest articles in a category created since
// the given time.
func (r *PostgresArticleRepository) RecentByCategory(ctx context.Context, category string, since time.Time, limit int) ([]models.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM articles
		WHERE category = $1 AND created_at >= $2
		ORDER BY published_at DESC
		LIMIT $3
	`, articleColumns)

	rows, err := r.db.QueryContext(ctx, query, category, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles by category: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// PromoteRecent refreshes the publish date on up to limit articles in a
// category that were ingested since the given time, surfacing them at the
// top of recency-ordered listings. It returns the number of rows updated.
func (r *PostgresArticleRepository) PromoteRecent(ctx context.Context, category string, since time.Time, limit int) (int64, error) {
	query := `
		UPDATE articles
		SET published_at = NOW()
		WHERE id IN (
			SELECT id FROM articles
			WHERE category = $1 AND created_at >= $2
			ORDER BY published_at DESC
			LIMIT $3
		)
	`

	result, err := r.db.ExecContext(ctx, query, category, since, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to promote articles: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read promote result: %w", err)
	}

	return rows, nil
}

// DeleteOlderThan removes articles ingested before the cutoff and returns
// the number of rows deleted. Retention is keyed on created_at rather than
// published_at because feeds routinely carry decade-old publish dates.
func (r *PostgresArticleRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old articles: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	return rows, nil
}

// DeleteDuplicateTitles removes articles sharing a title (case-insensitive),
// keeping the oldest row of each group. Returns the number of rows deleted.
func (r *PostgresArticleRepository) DeleteDuplicateTitles(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM articles
		WHERE id NOT IN (
			SELECT MIN(id)
			FROM articles
			GROUP BY LOWER(title)
		)
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate titles: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	return rows, nil
}

// Stats returns aggregate statistics about stored articles.
func (r *PostgresArticleRepository) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{ByCategory: make(map[string]int)}

	var oldest, newest sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(published_at), MAX(published_at)
		FROM articles
	`).Scan(&stats.TotalArticles, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to query article stats: %w", err)
	}

	if oldest.Valid {
		stats.OldestArticle = &oldest.Time
	}
	if newest.Valid {
		stats.NewestArticle = &newest.Time
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM articles
		GROUP BY category
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category stat: %w", err)
		}
		stats.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

// Tags returns every distinct tag present in the store, sorted.
func (r *PostgresArticleRepository) Tags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT UNNEST(tags) AS tag
		FROM articles
		ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tags, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticleInto(scanner rowScanner, article *models.Article) error {
	var tags pq.StringArray

	err := scanner.Scan(
		&article.ID,
		&article.Title,
		&article.URL,
		&article.Summary,
		&article.Source,
		&article.Category,
		&article.Subcategory,
		&tags,
		&article.Author,
		&article.ImageURL,
		&article.PublishedAt,
		&article.CreatedAt,
	)
	if err != nil {
		return err
	}

	article.Tags = tags
	return nil
}

func scanArticleRow(row *sql.Row) (*models.Article, error) {
	var article models.Article
	if err := scanArticleInto(row, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func scanArticles(rows *sql.Rows) ([]models.Article, error) {
	articles := []models.Article{}
	for rows.Next() {
		var article models.Article
		if err := scanArticleInto(rows, &article); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return articles, nil
}
