package ingestion

import (
	"testing"
)

func TestLenientParserRecoversUnclosedTags(t *testing.T) {
	parser := NewLenientParser()
	articles, err := parser.Parse([]byte(brokenRSS))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "Gut Microbiome Findings Update" {
		t.Errorf("title = %q", articles[0].Title)
	}
	if articles[0].URL != "https://news.healthdesk.org/gut-microbiome" {
		t.Errorf("url = %q", articles[0].URL)
	}
}

func TestLenientParserUnwrapsCDATA(t *testing.T) {
	feed := `<rss><channel>
<item>
<title><![CDATA[Processed Foods & Health Outcomes]]></title>
<link>https://news.healthdesk.org/processed-foods</link>
<description><![CDATA[An umbrella review covers the evidence on ultra-processed food consumption.
</item>
</channel></rss>`

	parser := NewLenientParser()
	articles, err := parser.Parse([]byte(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "Processed Foods & Health Outcomes" {
		t.Errorf("title = %q", articles[0].Title)
	}
}

func TestLenientParserReadsAtomEntries(t *testing.T) {
	feed := `<feed>
<entry>
<title>Vitamin D Trial Results Published</title>
<link rel="alternate" href="https://news.healthdesk.org/vitamin-d"/>
<summary>A randomized trial of daily supplementation reports its primary endpoint.
</entry>
</feed>`

	parser := NewLenientParser()
	articles, err := parser.Parse([]byte(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].URL != "https://news.healthdesk.org/vitamin-d" {
		t.Errorf("url = %q", articles[0].URL)
	}
}

func TestLenientParserFallsBackToGUID(t *testing.T) {
	feed := `<rss><channel>
<item>
<title>Heat Warnings Issued For Vulnerable Patients</title>
<guid>https://news.healthdesk.org/heat-warning</guid>
</item>
</channel></rss>`

	parser := NewLenientParser()
	articles, err := parser.Parse([]byte(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(articles) != 1 || articles[0].URL != "https://news.healthdesk.org/heat-warning" {
		t.Fatalf("guid link not recovered: %+v", articles)
	}
}

func TestLenientParserSkipsEntriesWithoutLinks(t *testing.T) {
	feed := `<rss><channel>
<item><title>No Link Here</title></item>
</channel></rss>`

	parser := NewLenientParser()
	if _, err := parser.Parse([]byte(feed)); err == nil {
		t.Fatal("expected an error when no entry carries a link")
	}
}

func TestLenientParserRejectsNonFeedDocuments(t *testing.T) {
	parser := NewLenientParser()
	if _, err := parser.Parse([]byte("<html><body>scheduled maintenance</body></html>")); err == nil {
		t.Fatal("expected an error for a document with no feed blocks")
	}
}
