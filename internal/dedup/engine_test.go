package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

func TestAdmitRejectsRepeatedURL(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	article := models.RawArticle{
		Title: "Fiber Intake Tied to Lower Cholesterol",
		URL:   "https://example.com/fiber-cholesterol",
	}

	if ok, _ := engine.Admit(article); !ok {
		t.Fatal("first admit should succeed")
	}

	ok, reason := engine.Admit(article)
	if ok {
		t.Fatal("second admit of same URL should be rejected")
	}
	if reason != ReasonDuplicateURL {
		t.Errorf("expected reason %q, got %q", ReasonDuplicateURL, reason)
	}
}

func TestAdmitRejectsTrackingParameterVariants(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	first := models.RawArticle{
		Title: "Mediterranean Diet Cuts Stroke Risk",
		URL:   "https://example.com/med-diet-stroke",
	}
	variant := models.RawArticle{
		Title: "Mediterranean Diet Cuts Stroke Risk",
		URL:   "https://example.com/med-diet-stroke?utm_source=feed&utm_medium=rss",
	}

	if ok, _ := engine.Admit(first); !ok {
		t.Fatal("first admit should succeed")
	}

	// Different URL hash, same normalized title: still a duplicate.
	ok, reason := engine.Admit(variant)
	if ok {
		t.Fatal("tracking-parameter variant should be rejected")
	}
	if reason != ReasonDuplicateTitle {
		t.Errorf("expected reason %q, got %q", ReasonDuplicateTitle, reason)
	}
}

func TestAdmitRejectsNearIdenticalTitles(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	shared := "health spending keeps rising across most regions this year again " +
		"experts warn budgets cannot keep pace with demand for"

	if ok, _ := engine.Admit(models.RawArticle{
		Title: shared + " hospitals",
		URL:   "https://a.example.com/1",
	}); !ok {
		t.Fatal("first admit should succeed")
	}

	ok, reason := engine.Admit(models.RawArticle{
		Title: shared + " clinics",
		URL:   "https://b.example.com/2",
	})
	if ok {
		t.Fatal("near-identical title should be rejected")
	}
	if reason != ReasonSimilarTitle {
		t.Errorf("expected reason %q, got %q", ReasonSimilarTitle, reason)
	}
}

func TestAdmitAllowsDistinctTitles(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	if ok, _ := engine.Admit(models.RawArticle{
		Title: "study finds sugar intake rising a1 a2 a3 a4 a5",
		URL:   "https://a.example.com/1",
	}); !ok {
		t.Fatal("first admit should succeed")
	}

	// Token-overlap ratio 0.5 is well under the threshold.
	if ok, reason := engine.Admit(models.RawArticle{
		Title: "study finds sugar intake rising b1 b2 b3 b4 b5",
		URL:   "https://b.example.com/2",
	}); !ok {
		t.Fatalf("distinct title should be admitted, rejected with %q", reason)
	}
}

func TestAdmitRejectsSimilarSummaries(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	summary := "Researchers followed ten thousand adults for five years and found " +
		"that daily walking was associated with measurably lower blood pressure"

	if ok, _ := engine.Admit(models.RawArticle{
		Title:   "Daily Walking Lowers Blood Pressure",
		URL:     "https://a.example.com/walking",
		Summary: summary,
	}); !ok {
		t.Fatal("first admit should succeed")
	}

	ok, reason := engine.Admit(models.RawArticle{
		Title:   "Walk Every Day, Says New Heart Report",
		URL:     "https://b.example.com/walk-report",
		Summary: summary,
	})
	if ok {
		t.Fatal("identical summary should be rejected")
	}
	if reason != ReasonSimilarSummary {
		t.Errorf("expected reason %q, got %q", ReasonSimilarSummary, reason)
	}
}

func TestSeedRejectsHistoricalArticles(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	engine.Seed([]models.URLTitle{
		{URL: "https://example.com/stored", Title: "Stored Headline About Sleep"},
	})

	if ok, _ := engine.Admit(models.RawArticle{
		Title: "Fresh Headline About Exercise",
		URL:   "https://example.com/stored",
	}); ok {
		t.Error("seeded URL should be rejected")
	}

	if ok, _ := engine.Admit(models.RawArticle{
		Title: "Stored Headline About Sleep",
		URL:   "https://example.com/new-url",
	}); ok {
		t.Error("seeded title should be rejected")
	}

	if ok, _ := engine.Admit(models.RawArticle{
		Title: "Entirely New Headline About Nutrition",
		URL:   "https://example.com/brand-new",
	}); !ok {
		t.Error("unrelated article should be admitted")
	}
}

func TestAdmitConcurrentSameArticle(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	article := models.RawArticle{
		Title: "Hydration and Kidney Function",
		URL:   "https://example.com/hydration",
	}

	const workers = 16
	var wg sync.WaitGroup
	admitted := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := engine.Admit(article)
			admitted <- ok
		}()
	}
	wg.Wait()
	close(admitted)

	successes := 0
	for ok := range admitted {
		if ok {
			successes++
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly one successful admit, got %d", successes)
	}
}

func TestAdmitManyDistinctArticles(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	for i := 0; i < 50; i++ {
		article := models.RawArticle{
			Title: fmt.Sprintf("Unique headline number %d on topic %d", i, i*7),
			URL:   fmt.Sprintf("https://example.com/article-%d", i),
		}
		if ok, reason := engine.Admit(article); !ok {
			t.Fatalf("article %d unexpectedly rejected: %s", i, reason)
		}
	}

	if got := engine.AcceptedCount(); got != 50 {
		t.Errorf("expected 50 accepted articles, got %d", got)
	}
}
