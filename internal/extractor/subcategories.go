package extractor

import (
	"zara/scraper/internal/domain"
	"zara/scraper/internal/jsontree"
)

// ExtractSubcategoriesFromElement builds the subcategory tree stored in an
// array node. Every node of the result carries parentSectionName unchanged.
// Anything but an array yields an empty slice.
func (e *Extractor) ExtractSubcategoriesFromElement(node *jsontree.Node, parentSectionName string) ([]domain.Subcategory, error) {
	return e.subcategories(node, parentSectionName, 1)
}

func (e *Extractor) subcategories(node *jsontree.Node, parent string, depth int) ([]domain.Subcategory, error) {
	subcategories := make([]domain.Subcategory, 0, node.Len())
	if !node.IsArray() {
		return subcategories, nil
	}
	if err := e.checkDepth(depth); err != nil {
		return nil, err
	}

	for _, item := range node.Items() {
		if !hasResolvableName(item) {
			continue
		}
		if err := e.checkDepth(depth + 1); err != nil {
			return nil, err
		}

		name, _ := ResolveString(item, NameFields)
		sub := domain.Subcategory{
			ID:                ResolveInt(item, IDFields),
			Name:              name,
			Href:              resolveOptional(item, HrefFields),
			ParentSectionName: parent,
			Children:          make([]domain.Subcategory, 0),
		}

		if nested, ok := item.Get(NestedField); ok {
			children, err := e.subcategories(nested, parent, depth+2)
			if err != nil {
				return nil, err
			}
			sub.Children = children
		}

		subcategories = append(subcategories, sub)
	}

	return subcategories, nil
}
