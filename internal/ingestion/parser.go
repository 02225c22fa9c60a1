package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// Parser turns raw feed bytes into normalized article candidates. Entries
// without a usable link are dropped; an empty result with a nil error means
// the feed parsed but carried nothing usable.
type Parser interface {
	Parse(data []byte) ([]models.RawArticle, error)
}

// FeedParser is the primary parser, handling well-formed RSS and Atom.
type FeedParser struct {
	fp *gofeed.Parser
}

// NewFeedParser creates the strict RSS/Atom parser.
func NewFeedParser() *FeedParser {
	return &FeedParser{fp: gofeed.NewParser()}
}

// Parse decodes the feed and normalizes each entry.
func (p *FeedParser) Parse(data []byte) ([]models.RawArticle, error) {
	feed, err := p.fp.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	articles := make([]models.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := CleanURL(item.Link)
		if link == "" {
			link = CleanURL(item.GUID)
		}
		if link == "" {
			continue
		}

		title := NormalizeTitle(item.Title)

		body := item.Description
		if strings.TrimSpace(body) == "" {
			body = item.Content
		}

		articles = append(articles, models.RawArticle{
			Title:       title,
			URL:         link,
			Summary:     NormalizeSummary(body, title),
			Author:      itemAuthor(item),
			ImageURL:    itemImage(item),
			PublishedAt: itemPublished(item),
		})
	}
	return articles, nil
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	if item.Published != "" {
		return ParseFeedDate(item.Published)
	}
	return time.Now().UTC()
}

func itemAuthor(item *gofeed.Item) string {
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
