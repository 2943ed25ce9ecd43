package catalog

import (
	"strings"
	"unicode/utf8"
)

// minSubstringRunes keeps one- and two-letter inputs from matching every category.
const minSubstringRunes = 3

// Resolver matches free text against a small set of categories.
type Resolver struct {
	categories []Category
}

// NewResolver builds a resolver over the given categories.
func NewResolver(categories []Category) *Resolver {
	return &Resolver{categories: categories}
}

// Resolve tries, in order: id, exact slug, exact name (case and accent
// insensitive), then substring in either direction. The first hit wins.
func (r *Resolver) Resolve(input string) (*Category, bool) {
	input = strings.TrimSpace(input)
	if r == nil || input == "" {
		return nil, false
	}

	for i := range r.categories {
		if r.categories[i].ID == input {
			return &r.categories[i], true
		}
	}

	lower := strings.ToLower(input)
	for i := range r.categories {
		if r.categories[i].Slug != "" && r.categories[i].Slug == lower {
			return &r.categories[i], true
		}
	}

	folded := Fold(input)
	for i := range r.categories {
		if Fold(r.categories[i].Name) == folded {
			return &r.categories[i], true
		}
	}

	if utf8.RuneCountInString(folded) < minSubstringRunes {
		return nil, false
	}
	for i := range r.categories {
		name := Fold(r.categories[i].Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, folded) || strings.Contains(folded, name) {
			return &r.categories[i], true
		}
	}
	return nil, false
}

// Names lists category names in catalog order, used in validation errors.
func (r *Resolver) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.categories))
	for _, c := range r.categories {
		names = append(names, c.Name)
	}
	return names
}
