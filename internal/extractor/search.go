package extractor

import (
	"strings"

	"zara/scraper/internal/domain"
	"zara/scraper/internal/jsontree"

	"golang.org/x/text/cases"
)

// Filter selects the categories whose subcategories are collected. A node
// matches on an exact id OR on a case-insensitive substring of its name. An
// empty filter matches nothing.
type Filter struct {
	CategoryID   *int
	CategoryName string
}

func (f Filter) IsEmpty() bool {
	return f.CategoryID == nil && f.CategoryName == ""
}

// SearchSubcategoriesInElement walks the whole document and collects the
// subcategories of every object matching filter. Matches at different depths
// are all collected, in document order.
func (e *Extractor) SearchSubcategoriesInElement(node *jsontree.Node, filter Filter) ([]domain.Subcategory, error) {
	m := newMatcher(filter)
	result := make([]domain.Subcategory, 0)
	if err := e.walk(node, 1, m.matches, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExtractAllSubcategoriesFromElement collects the subcategories of every
// object in the document, each labelled with its owner's name.
func (e *Extractor) ExtractAllSubcategoriesFromElement(node *jsontree.Node) ([]domain.Subcategory, error) {
	result := make([]domain.Subcategory, 0)
	if err := e.walk(node, 1, matchAll, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func matchAll(*jsontree.Node, string) bool { return true }

type matcher struct {
	filter Filter
	folded string
	caser  cases.Caser
}

func newMatcher(filter Filter) *matcher {
	m := &matcher{filter: filter, caser: cases.Fold()}
	m.folded = m.caser.String(filter.CategoryName)
	return m
}

func (m *matcher) matches(node *jsontree.Node, name string) bool {
	if m.filter.CategoryID != nil && ResolveInt(node, IDFields) == *m.filter.CategoryID {
		return true
	}
	if m.filter.CategoryName == "" || name == "" {
		return false
	}
	return strings.Contains(m.caser.String(name), m.folded)
}

func (e *Extractor) walk(node *jsontree.Node, depth int, match func(*jsontree.Node, string) bool, result *[]domain.Subcategory) error {
	switch node.Kind() {
	case jsontree.Object:
		if err := e.checkDepth(depth); err != nil {
			return err
		}

		name, _ := ResolveString(node, NameFields)
		if match(node, name) {
			if nested, ok := node.Get(NestedField); ok {
				found, err := e.subcategories(nested, name, depth+1)
				if err != nil {
					return err
				}
				*result = append(*result, found...)
			}
		}

		for _, prop := range node.Members() {
			if err := e.walk(prop.Value, depth+1, match, result); err != nil {
				return err
			}
		}
	case jsontree.Array:
		if err := e.checkDepth(depth); err != nil {
			return err
		}
		for _, item := range node.Items() {
			if err := e.walk(item, depth+1, match, result); err != nil {
				return err
			}
		}
	}
	return nil
}
