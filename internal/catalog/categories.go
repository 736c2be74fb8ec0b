// Package catalog holds the marketplace's two-level product taxonomy.
//
// The taxonomy is static: main categories group an ordered list of
// subcategories, and every lookup is a linear scan in declaration order.
package catalog

import "strings"

// Category is a main category with its subcategories in display order
type Category struct {
	Name          string
	Subcategories []string
}

// Hierarchy is an immutable two-level taxonomy
type Hierarchy struct {
	categories []Category
}

// Mapping partitions arbitrary category names against a hierarchy
type Mapping struct {
	Mains    []string
	Unmapped []string
}

// NewHierarchy copies the given categories so later mutation of the input has no effect
func NewHierarchy(categories []Category) *Hierarchy {
	cp := make([]Category, len(categories))
	for i, c := range categories {
		cp[i] = Category{
			Name:          c.Name,
			Subcategories: append([]string(nil), c.Subcategories...),
		}
	}
	return &Hierarchy{categories: cp}
}

// MainCategories returns top-level names in declaration order
func (h *Hierarchy) MainCategories() []string {
	names := make([]string, 0, len(h.categories))
	for _, c := range h.categories {
		names = append(names, c.Name)
	}
	return names
}

// Subcategories returns the subcategories of main, or an empty list if main is unknown
func (h *Hierarchy) Subcategories(main string) []string {
	for _, c := range h.categories {
		if c.Name == main {
			return append([]string{}, c.Subcategories...)
		}
	}
	return []string{}
}

// MainCategoryFor returns the first main category listing sub.
// The boolean is false when no main category lists it.
func (h *Hierarchy) MainCategoryFor(sub string) (string, bool) {
	for _, c := range h.categories {
		for _, s := range c.Subcategories {
			if s == sub {
				return c.Name, true
			}
		}
	}
	return "", false
}

// IsMainCategory reports whether name is a top-level category
func (h *Hierarchy) IsMainCategory(name string) bool {
	for _, c := range h.categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// IsSubcategory reports whether name appears under any main category
func (h *Hierarchy) IsSubcategory(name string) bool {
	_, ok := h.MainCategoryFor(name)
	return ok
}

// MapToHierarchy resolves each name to its main category. Main category
// names resolve to themselves. Resolved mains are deduplicated in first-seen
// order; names that resolve to nothing are returned as unmapped.
func (h *Hierarchy) MapToHierarchy(names []string) Mapping {
	m := Mapping{Mains: []string{}, Unmapped: []string{}}
	seen := make(map[string]struct{})

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		main := ""
		if h.IsMainCategory(name) {
			main = name
		} else if parent, ok := h.MainCategoryFor(name); ok {
			main = parent
		}

		if main == "" {
			m.Unmapped = append(m.Unmapped, name)
			continue
		}
		if _, dup := seen[main]; dup {
			continue
		}
		seen[main] = struct{}{}
		m.Mains = append(m.Mains, main)
	}

	return m
}

// Expand returns the set of category names a catalog filter on name should match:
// a main category plus all of its subcategories, or just the name otherwise.
func (h *Hierarchy) Expand(name string) []string {
	if h.IsMainCategory(name) {
		return append([]string{name}, h.Subcategories(name)...)
	}
	return []string{name}
}

// Collisions lists subcategory names declared under more than one main
// category, with the mains in declaration order. MainCategoryFor resolves
// such names to the first of them.
func (h *Hierarchy) Collisions() map[string][]string {
	owners := make(map[string][]string)
	for _, c := range h.categories {
		for _, s := range c.Subcategories {
			owners[s] = append(owners[s], c.Name)
		}
	}

	out := make(map[string][]string)
	for sub, mains := range owners {
		if len(mains) > 1 {
			out[sub] = mains
		}
	}
	return out
}
