package classify

import (
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// maxDerivedTags caps how many keyword-derived tags one article can carry.
// Rules are ordered with the metabolic-health core first, so the cap keeps
// the most specific tags when a broad article trips many rules.
const maxDerivedTags = 8

// tagRule maps one topic tag to the keywords that imply it.
type tagRule struct {
	tag      string
	keywords []string
}

// tagRules drives Tagger. Tag labels line up with the vocabulary the read
// API exposes, so a tag filter works whether the tag came from a source's
// configuration or from here.
var tagRules = []tagRule{
	{"diabetes", []string{"diabetes", "diabetic", "blood sugar", "insulin", "glucose", "a1c", "glycemic"}},
	{"obesity", []string{"obesity", "obese", "overweight", "weight loss", "bariatric", "bmi", "adipose"}},
	{"metabolic_syndrome", []string{"metabolic syndrome", "insulin resistance", "cardiometabolic"}},
	{"hypertension", []string{"hypertension", "blood pressure", "systolic", "diastolic"}},
	{"cholesterol", []string{"cholesterol", "triglycerides", "ldl", "hdl", "lipids", "dyslipidemia"}},
	{"nutrition", []string{"nutrition", "nutritional", "diet", "dietary", "eating", "meal"}},
	{"processed_foods", []string{"processed food", "ultra-processed", "packaged food", "junk food", "fast food"}},
	{"sugar", []string{"sugar", "fructose", "sweetener", "high fructose corn syrup", "sucrose"}},
	{"micronutrients", []string{"vitamin", "mineral", "micronutrient", "deficiency", "supplement"}},
	{"gut_health", []string{"gut", "microbiome", "probiotic", "prebiotic", "digestive", "intestinal"}},
	{"fitness", []string{"fitness", "exercise", "workout", "physical activity", "training", "gym"}},
	{"weight_management", []string{"weight management", "calorie", "portion"}},
	{"preventive_care", []string{"prevention", "preventive", "screening", "early detection", "checkup"}},
	{"lifestyle", []string{"lifestyle", "wellness", "healthy living", "habit"}},
	{"sleep", []string{"sleep", "insomnia", "circadian", "melatonin"}},
	{"environmental_toxins", []string{"pollution", "toxin", "pesticide", "herbicide", "contamination"}},
	{"organic_farming", []string{"organic", "organic farming", "sustainable agriculture", "pesticide-free"}},
	{"gmos", []string{"gmo", "genetically modified", "genetic engineering", "bioengineered"}},
	{"food_security", []string{"food security", "food insecurity", "hunger", "malnutrition"}},
	{"mental_health", []string{"mental health", "depression", "anxiety", "stress", "psychological"}},
	{"heart_health", []string{"cardiac", "cardiovascular", "coronary", "angina", "stroke"}},
	{"inflammation", []string{"inflammation", "inflammatory", "immune response"}},
	{"hormone_health", []string{"hormone", "hormonal", "endocrine", "thyroid", "testosterone", "estrogen"}},
	{"women_health", []string{"women", "female", "pregnancy", "maternal", "menopause", "gynecology"}},
	{"men_health", []string{"men", "male", "prostate", "andrology"}},
	{"elderly", []string{"elderly", "aging", "senior", "geriatric", "age-related"}},
	{"children", []string{"children", "child", "pediatric", "infant", "adolescent", "teen"}},
}

// Tagger derives topic tags for an article from a fixed keyword map. Like
// Classifier it compiles every keyword into one Aho-Corasick automaton so
// tagging costs a single pass over the text.
//
// A Tagger is immutable after construction and safe for concurrent use.
type Tagger struct {
	matcher *ahocorasick.Matcher
	phrases []string
	rules   []compiledTagRule
}

type compiledTagRule struct {
	tag     string
	phrases []tagPhraseRef
}

// tagPhraseRef points into the shared phrase list. word is set for plain
// single-token keywords, which must appear as a standalone word: "men" may
// not fire inside "women" or "treatment".
type tagPhraseRef struct {
	index int
	word  string
}

// NewTagger compiles the tag keyword map.
func NewTagger() *Tagger {
	t := &Tagger{}

	phraseIndex := make(map[string]int)
	for _, rule := range tagRules {
		compiled := compiledTagRule{tag: rule.tag}
		for _, keyword := range rule.keywords {
			phrase := strings.ToLower(strings.TrimSpace(keyword))
			if phrase == "" {
				continue
			}
			idx, ok := phraseIndex[phrase]
			if !ok {
				idx = len(t.phrases)
				phraseIndex[phrase] = idx
				t.phrases = append(t.phrases, phrase)
			}
			ref := tagPhraseRef{index: idx}
			if isPlainWord(phrase) {
				ref.word = phrase
			}
			compiled.phrases = append(compiled.phrases, ref)
		}
		t.rules = append(t.rules, compiled)
	}

	if len(t.phrases) > 0 {
		t.matcher = ahocorasick.NewStringMatcher(t.phrases)
	}

	return t
}

// Derive returns the tags whose keywords appear in the article text, in
// rule order, capped at maxDerivedTags. Identical inputs always produce
// identical output.
func (t *Tagger) Derive(title, summary string) []string {
	text := strings.ToLower(strings.TrimSpace(title + " " + summary))
	if text == "" || t.matcher == nil {
		return nil
	}

	hits := make(map[int]struct{})
	for _, idx := range t.matcher.Match([]byte(text)) {
		hits[idx] = struct{}{}
	}
	if len(hits) == 0 {
		return nil
	}

	words := make(map[string]struct{})
	for _, word := range splitPlainWords(text) {
		words[word] = struct{}{}
	}

	var tags []string
	for _, rule := range t.rules {
		for _, ref := range rule.phrases {
			if _, ok := hits[ref.index]; !ok {
				continue
			}
			if ref.word != "" {
				if _, ok := words[ref.word]; !ok {
					continue
				}
			}
			tags = append(tags, rule.tag)
			break
		}
		if len(tags) == maxDerivedTags {
			break
		}
	}
	return tags
}

// isPlainWord reports whether a phrase is one token of letters and digits,
// the only shape the standalone-word check applies to.
func isPlainWord(phrase string) bool {
	if phrase == "" {
		return false
	}
	for _, r := range phrase {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// splitPlainWords splits text on every non-alphanumeric rune so that
// punctuation next to a word ("diabetes:") does not hide it.
func splitPlainWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
