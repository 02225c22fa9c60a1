// Package relevance scores articles against the site's metabolic health
// focus and rejects off-topic content before it reaches storage.
package relevance

import (
	"regexp"
	"strings"
)

const (
	titleWeight   = 3.0
	summaryWeight = 2.0
	contentWeight = 1.0
	patternWeight = 0.5

	defaultMinScore    = 0.1
	defaultMinRawScore = 1.0
)

// Config holds the acceptance thresholds. An article is kept only when
// its normalized score clears MinScore, at least one keyword matched,
// and the raw weighted score clears MinRawScore.
type Config struct {
	MinScore    float64
	MinRawScore float64
}

// DefaultConfig returns the standard acceptance thresholds.
func DefaultConfig() Config {
	return Config{
		MinScore:    defaultMinScore,
		MinRawScore: defaultMinRawScore,
	}
}

// keywordGroups holds the topic vocabulary in declaration order. Group
// order fixes the order of matched keywords in a Result.
var keywordGroups = [][]string{
	// metabolic diseases
	{
		"metabolic diseases", "metabolic syndrome", "obesity", "type 2 diabetes",
		"insulin resistance", "hypertension", "hyperlipidemia",
		"non-alcoholic fatty liver disease", "nafld", "cardiometabolic disorders",
		"mitochondrial dysfunction", "endocrine disruption", "diabetic", "diabetes",
		"blood sugar", "glucose metabolism", "lipid disorders", "fatty liver",
		"metabolic disorder", "syndrome x", "insulin sensitivity", "glucose intolerance",
	},
	// metabolism
	{
		"basal metabolic rate", "bmr", "energy homeostasis", "anabolism",
		"catabolism", "glucose metabolism", "lipid metabolism", "protein metabolism",
		"nutrient absorption", "hormonal regulation", "gut microbiota", "metabolism",
		"metabolic rate", "energy expenditure", "caloric metabolism", "nutrient metabolism",
		"cellular metabolism", "enzymatic processes", "biochemical pathways",
		"energy production", "metabolic pathways",
	},
	// food and nutrition
	{
		"macronutrients", "micronutrients", "nutrient deficiency", "overnutrition",
		"dietary patterns", "processed foods", "ultra-processed foods", "caloric intake",
		"glycemic index", "dietary fiber", "antioxidants", "probiotics", "prebiotics",
		"nutrition", "diet", "food", "eating", "meal", "supplement", "vitamin", "mineral",
		"healthy eating", "balanced diet", "nutrients", "nutritional value", "food quality",
	},
	// agriculture
	{
		"agrochemicals", "pesticide residues", "gmos", "genetically modified organisms",
		"monoculture", "soil degradation", "crop diversity", "food security",
		"agroecology", "organic farming", "livestock emissions", "agro-industrial processing",
		"agricultural practices", "farming methods", "food production", "pesticides",
		"herbicides", "chemical fertilizers", "sustainable agriculture",
	},
	// sugar and sweeteners
	{
		"added sugars", "high-fructose corn syrup", "refined carbohydrates",
		"artificial sweeteners", "sugar-sweetened beverages", "insulin spike",
		"fructose metabolism", "glycemic load", "sugar addiction", "hidden sugars",
		"sugar", "sweeteners", "fructose", "sucrose", "glucose", "corn syrup",
		"simple carbohydrates", "refined sugar", "natural sugars",
	},
	// air pollution
	{
		"particulate matter", "pm2.5", "oxidative stress", "inflammation",
		"endocrine-disrupting chemicals", "edcs", "metabolic dysregulation",
		"respiratory-metabolic link", "urban smog", "toxic air exposure",
		"air pollution", "environmental toxins", "air quality", "pollutants",
		"atmospheric pollution", "environmental health",
	},
	// water pollution
	{
		"heavy metals", "lead", "mercury", "nitrate contamination", "microplastics",
		"pesticide runoff", "endocrine disruptors", "toxic algal blooms",
		"drinking water safety", "bioaccumulation", "industrial effluents",
		"water pollution", "water contamination", "water quality", "toxic metals",
		"chemical pollutants", "water safety",
	},
}

// semanticPatterns catch word stems the keyword lists miss. Each distinct
// stem contributes patternWeight once.
var semanticPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(metabol|diabet|insulin|glucose|obesit|weight|nutrition|diet)\w*\b`),
	regexp.MustCompile(`\b(cardiovascular|heart|blood pressure|cholesterol)\w*\b`),
	regexp.MustCompile(`\b(hormone|endocrin|thyroid|adrenal)\w*\b`),
	regexp.MustCompile(`\b(food|eat|meal|calor|nutrient)\w*\b`),
	regexp.MustCompile(`\b(exercise|fitness|physical activity|lifestyle)\w*\b`),
	regexp.MustCompile(`\b(gut|microbiom|digestiv|intestin)\w*\b`),
	regexp.MustCompile(`\b(inflammation|oxidativ|stress|toxic)\w*\b`),
	regexp.MustCompile(`\b(liver|hepatic|fatty liver|nafld)\w*\b`),
	regexp.MustCompile(`\b(sugar|sweet|fructos|glycem)\w*\b`),
	regexp.MustCompile(`\b(pollut|contamin|pesticid|chemical)\w*\b`),
}

// Result reports how an article scored against the topic vocabulary.
type Result struct {
	Relevant bool
	Score    float64 // normalized to [0, 1]
	RawScore float64
	Keywords []string
}

// Filter decides whether an article is on-topic for the site.
type Filter interface {
	Evaluate(title, summary, content string) Result
}

// KeywordFilter scores articles with weighted keyword and stem matching.
type KeywordFilter struct {
	cfg Config
}

// NewKeywordFilter returns a topic filter with the given thresholds.
// Zero or negative thresholds fall back to the defaults.
func NewKeywordFilter(cfg Config) *KeywordFilter {
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	if cfg.MinRawScore <= 0 {
		cfg.MinRawScore = defaultMinRawScore
	}
	return &KeywordFilter{cfg: cfg}
}

// Evaluate scores the article text. Keyword matches are weighted by where
// they occur: title matches count most, then summary, then body content.
func (f *KeywordFilter) Evaluate(title, summary, content string) Result {
	lowerTitle := strings.ToLower(title)
	lowerSummary := strings.ToLower(summary)
	fullText := lowerTitle + " " + lowerSummary + " " + strings.ToLower(content)

	var (
		raw     float64
		matched []string
		seen    = make(map[string]struct{})
	)

	for _, group := range keywordGroups {
		for _, keyword := range group {
			if !strings.Contains(fullText, keyword) {
				continue
			}
			matched = append(matched, keyword)
			seen[keyword] = struct{}{}
			switch {
			case strings.Contains(lowerTitle, keyword):
				raw += titleWeight
			case strings.Contains(lowerSummary, keyword):
				raw += summaryWeight
			default:
				raw += contentWeight
			}
		}
	}

	for _, pattern := range semanticPatterns {
		for _, groups := range pattern.FindAllStringSubmatch(fullText, -1) {
			stem := groups[1]
			if _, ok := seen[stem]; ok {
				continue
			}
			matched = append(matched, stem)
			seen[stem] = struct{}{}
			raw += patternWeight
		}
	}

	maxPossible := float64(len(strings.Fields(fullText))) * 0.1
	if maxPossible < 1.0 {
		maxPossible = 1.0
	}
	normalized := raw / maxPossible
	if normalized > 1.0 {
		normalized = 1.0
	}

	return Result{
		Relevant: normalized >= f.cfg.MinScore && len(matched) >= 1 && raw >= f.cfg.MinRawScore,
		Score:    normalized,
		RawScore: raw,
		Keywords: matched,
	}
}

// PassThrough accepts every article. Used when topic filtering is
// disabled in configuration.
type PassThrough struct{}

func (PassThrough) Evaluate(title, summary, content string) Result {
	return Result{Relevant: true, Score: 1.0}
}
