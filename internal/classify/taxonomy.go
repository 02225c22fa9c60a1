package classify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Subcategory is a leaf of the taxonomy: a name plus its weighted keywords.
type Subcategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Category is a top-level topic with an ordered list of subcategories.
type Category struct {
	Name          string        `yaml:"name"`
	Subcategories []Subcategory `yaml:"subcategories"`
}

// Taxonomy is the fixed two-level classification scheme. Declaration order
// is significant: scoring ties are broken by the earlier entry.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// LoadTaxonomy reads the taxonomy document. When path is empty the embedded
// default is used.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	raw := defaultTaxonomy
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
		}
	}

	var taxonomy Taxonomy
	if err := yaml.Unmarshal(raw, &taxonomy); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	if err := taxonomy.validate(); err != nil {
		return nil, err
	}

	return &taxonomy, nil
}

func (t *Taxonomy) validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}

	seenCategory := make(map[string]bool)
	for _, category := range t.Categories {
		if category.Name == "" {
			return fmt.Errorf("taxonomy category with empty name")
		}
		if seenCategory[category.Name] {
			return fmt.Errorf("duplicate taxonomy category %q", category.Name)
		}
		seenCategory[category.Name] = true

		seenSub := make(map[string]bool)
		for _, sub := range category.Subcategories {
			if sub.Name == "" {
				return fmt.Errorf("category %q has a subcategory with empty name", category.Name)
			}
			if seenSub[sub.Name] {
				return fmt.Errorf("category %q has duplicate subcategory %q", category.Name, sub.Name)
			}
			seenSub[sub.Name] = true
		}
	}

	return nil
}

// CategoryNames returns the category names in declaration order.
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, category := range t.Categories {
		names = append(names, category.Name)
	}
	return names
}

// SubcategoryNames returns the subcategory names of a category in
// declaration order, or nil if the category does not exist.
func (t *Taxonomy) SubcategoryNames(category string) []string {
	for _, c := range t.Categories {
		if c.Name != category {
			continue
		}
		names := make([]string, 0, len(c.Subcategories))
		for _, sub := range c.Subcategories {
			names = append(names, sub.Name)
		}
		return names
	}
	return nil
}
