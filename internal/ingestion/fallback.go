package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// LenientParser recovers entries from feeds the strict parser rejects:
// unclosed tags, stray markup, undeclared entities. It parses the payload as
// tag soup and scrapes item or entry blocks out of whatever tree results.
type LenientParser struct{}

// NewLenientParser creates the tolerant fallback parser.
func NewLenientParser() *LenientParser {
	return &LenientParser{}
}

var cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// Parse scrapes article candidates from a malformed feed.
func (p *LenientParser) Parse(data []byte) ([]models.RawArticle, error) {
	// The HTML parser turns CDATA sections into comments and drops their
	// text. Unwrap them first so titles and descriptions survive.
	cleaned := cdataPattern.ReplaceAll(data, []byte("$1"))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("lenient parse: %w", err)
	}

	blocks := doc.Find("item")
	if blocks.Length() == 0 {
		blocks = doc.Find("entry")
	}
	if blocks.Length() == 0 {
		return nil, errors.New("lenient parse: no item or entry blocks found")
	}

	var articles []models.RawArticle
	blocks.Each(func(_ int, block *goquery.Selection) {
		link := blockLink(block)
		if link == "" {
			return
		}
		title := NormalizeTitle(blockText(block, "title"))

		articles = append(articles, models.RawArticle{
			Title:       title,
			URL:         link,
			Summary:     NormalizeSummary(blockText(block, "description", "summary", "content", `content\:encoded`), title),
			Author:      cleanHTML(blockText(block, "author", `dc\:creator`, "creator")),
			ImageURL:    blockImage(block),
			PublishedAt: ParseFeedDate(blockText(block, "pubdate", "published", "date", "updated")),
		})
	})
	if len(articles) == 0 {
		return nil, errors.New("lenient parse: no usable entries")
	}
	return articles, nil
}

// blockText returns the trimmed text of the first matching tag, trying
// selectors in order. Tag names are lowercase because the HTML parser folds
// them.
func blockText(block *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(block.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// blockLink extracts the entry URL. Atom links carry it in an href
// attribute. RSS links are trickier: the HTML parser treats link as a void
// element, so the URL text ends up as a sibling node rather than a child.
func blockLink(block *goquery.Selection) string {
	var preferred, anyHref, looseText string
	block.Find("link").Each(func(_ int, link *goquery.Selection) {
		if href, ok := link.Attr("href"); ok {
			href = strings.TrimSpace(href)
			if href == "" {
				return
			}
			rel, _ := link.Attr("rel")
			if preferred == "" && (rel == "" || rel == "alternate") {
				preferred = href
			}
			if anyHref == "" {
				anyHref = href
			}
			return
		}
		if looseText != "" {
			return
		}
		if text := strings.TrimSpace(link.Text()); text != "" {
			looseText = text
		} else if len(link.Nodes) > 0 {
			looseText = siblingText(link.Nodes[0])
		}
	})

	for _, candidate := range []string{preferred, anyHref, looseText} {
		if candidate != "" {
			return CleanURL(candidate)
		}
	}
	if guid := strings.TrimSpace(block.Find("guid").First().Text()); guid != "" {
		return CleanURL(guid)
	}
	return ""
}

// siblingText gathers the text nodes that immediately follow a node, up to
// the next element.
func siblingText(n *html.Node) string {
	var b strings.Builder
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			break
		}
		if sib.Type == html.TextNode {
			b.WriteString(sib.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// blockImage pulls an image URL from enclosure or media tags when one is
// present.
func blockImage(block *goquery.Selection) string {
	for _, sel := range []string{"enclosure", `media\:content`, `media\:thumbnail`} {
		var found string
		block.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			u, ok := s.Attr("url")
			if !ok || strings.TrimSpace(u) == "" {
				return true
			}
			if t, _ := s.Attr("type"); t != "" && !strings.HasPrefix(t, "image/") {
				return true
			}
			found = strings.TrimSpace(u)
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}
