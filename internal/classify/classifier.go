package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Scoring weights. An exact phrase occurrence dominates partial word
// overlap so "insulin resistance" outranks scattered single-word hits.
const (
	exactPhraseWeight = 3.0
	partialWordWeight = 1.5
)

// Classifier assigns a (category, subcategory) pair to article text using
// weighted keyword scoring over the taxonomy. All keyword phrases are
// compiled into a single Aho-Corasick automaton so one pass over the text
// finds every exact phrase match.
//
// A Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	taxonomy *Taxonomy
	matcher  *ahocorasick.Matcher
	phrases  []string
	pairs    []scoredPair
}

type scoredPair struct {
	category    string
	subcategory string
	phrases     []phraseRef
}

type phraseRef struct {
	index int
	words []string
}

// NewClassifier compiles the taxonomy into a classifier.
func NewClassifier(taxonomy *Taxonomy) *Classifier {
	c := &Classifier{taxonomy: taxonomy}

	phraseIndex := make(map[string]int)
	for _, category := range taxonomy.Categories {
		for _, sub := range category.Subcategories {
			pair := scoredPair{category: category.Name, subcategory: sub.Name}
			for _, keyword := range sub.Keywords {
				phrase := strings.ToLower(strings.TrimSpace(keyword))
				if phrase == "" {
					continue
				}
				idx, ok := phraseIndex[phrase]
				if !ok {
					idx = len(c.phrases)
					phraseIndex[phrase] = idx
					c.phrases = append(c.phrases, phrase)
				}
				pair.phrases = append(pair.phrases, phraseRef{
					index: idx,
					words: strings.Fields(phrase),
				})
			}
			c.pairs = append(c.pairs, pair)
		}
	}

	if len(c.phrases) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.phrases)
	}

	return c
}

// Taxonomy returns the taxonomy this classifier was built from.
func (c *Classifier) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Classify maps article text to a (category, subcategory) pair. It is a
// pure function of its inputs and the taxonomy: identical inputs always
// produce identical output.
//
// The best-scoring pair wins; ties go to the pair declared first in the
// taxonomy. A winning "news" category is refined through a fixed override
// chain because policy, scheme and international stories share generic
// news vocabulary. When nothing scores, fallbacks apply in order: the
// source hint table, generic keyword buckets, then ("news", "latest").
func (c *Classifier) Classify(title, summary, sourceHint string) (string, string) {
	text := strings.ToLower(strings.TrimSpace(title + " " + summary))

	hits := make(map[int]struct{})
	if c.matcher != nil && text != "" {
		for _, idx := range c.matcher.Match([]byte(text)) {
			hits[idx] = struct{}{}
		}
	}

	textWords := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		textWords[word] = struct{}{}
	}

	bestScore := 0.0
	bestIdx := -1

	for i, pair := range c.pairs {
		score := c.scorePair(pair, hits, textWords)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 {
		winner := c.pairs[bestIdx]
		if winner.category == "news" {
			return "news", refineNewsSubcategory(text)
		}
		return winner.category, winner.subcategory
	}

	return fallbackClassification(text, textWords, sourceHint)
}

// scorePair computes the weighted keyword score for one taxonomy pair.
// Exact phrase presence earns the full weight; otherwise partial credit is
// given for the fraction of the phrase's words present in the text.
func (c *Classifier) scorePair(pair scoredPair, hits map[int]struct{}, textWords map[string]struct{}) float64 {
	score := 0.0
	for _, ref := range pair.phrases {
		if _, ok := hits[ref.index]; ok {
			score += exactPhraseWeight
			continue
		}

		matched := 0
		for _, word := range ref.words {
			if _, ok := textWords[word]; ok {
				matched++
			}
		}
		if matched > 0 {
			score += partialWordWeight * float64(matched) / float64(len(ref.words))
		}
	}
	return score
}

// News override indicators, checked strictly in this order. The lists are
// intentionally narrower than the taxonomy keywords: they capture phrases
// that mark a specific editorial intent rather than general news language.
var (
	policyIndicators = []string{
		"health policy", "medical policy", "healthcare policy", "government health",
		"health regulation", "fda approval", "health ministry", "health department",
		"government scheme", "public health policy", "health law", "medical law",
	}

	schemeIndicators = []string{
		"ayushman bharat", "pradhan mantri", "cghs", "jan arogya",
		"government scheme", "health scheme", "health card",
	}

	internationalIndicators = []string{
		"international", "global", "world health", "who", "pandemic",
		"worldwide", "united nations", "unicef", "global study",
	}
)

func refineNewsSubcategory(text string) string {
	switch {
	case containsAny(text, policyIndicators):
		return "policy_and_regulation"
	case containsAny(text, schemeIndicators):
		return "govt_schemes"
	case containsAny(text, internationalIndicators):
		return "international"
	default:
		return "latest"
	}
}

// sourceHintFallback maps a source's declared category hint to a default
// classification used when keyword scoring finds nothing.
var sourceHintFallback = map[string][2]string{
	"medical_research":     {"diseases", "general"},
	"health_news":          {"news", "latest"},
	"public_health":        {"news", "policy_and_regulation"},
	"nutrition_science":    {"solutions", "nutrition"},
	"environmental_health": {"news", "international"},
	"global_health":        {"news", "international"},
}

func fallbackClassification(text string, textWords map[string]struct{}, sourceHint string) (string, string) {
	if pair, ok := sourceHintFallback[sourceHint]; ok {
		return pair[0], pair[1]
	}

	switch {
	case containsAnyWord(textWords, "study", "research", "trial"):
		return "diseases", "general"
	case containsAnyWord(textWords, "policy", "government", "regulation"):
		return "news", "policy_and_regulation"
	case containsAnyWord(textWords, "international", "global", "world"):
		return "news", "international"
	}

	return "news", "latest"
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func containsAnyWord(textWords map[string]struct{}, words ...string) bool {
	for _, word := range words {
		if _, ok := textWords[word]; ok {
			return true
		}
	}
	return false
}
