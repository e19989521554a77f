// Package extractor turns a loosely structured category listing into a typed
// category tree.
//
// The upstream nests its arrays at different depths and renames fields between
// versions, so nothing here assumes a fixed schema. Fields are resolved through
// synonym lists, objects without a usable name are skipped and type mismatches
// read as "nothing here". The only failures are documents that nest deeper than
// the configured limit.
package extractor

import (
	"fmt"

	"zara/scraper/internal/domain"
	"zara/scraper/internal/jsontree"

	log "github.com/sirupsen/logrus"
)

type Extractor struct {
	maxDepth int
}

type Option func(*Extractor)

// WithMaxDepth limits container nesting for both parsing and walking.
func WithMaxDepth(depth int) Option {
	return func(e *Extractor) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{maxDepth: jsontree.DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) MaxDepth() int {
	return e.maxDepth
}

// Parse decodes a document with the extractor's depth limit.
func (e *Extractor) Parse(data []byte) (*jsontree.Node, error) {
	return jsontree.Parse(data, e.maxDepth)
}

func (e *Extractor) checkDepth(depth int) error {
	if depth > e.maxDepth {
		return fmt.Errorf("%w: limit %d", jsontree.ErrDepthExceeded, e.maxDepth)
	}
	return nil
}

// ExtractCategories collects the top-level categories of a document. A root
// array is read as a list of categories. For a root object every array-valued
// property is such a list, and object-valued properties are searched one more
// level down for array-valued properties.
func (e *Extractor) ExtractCategories(root *jsontree.Node) ([]domain.Category, error) {
	categories := make([]domain.Category, 0)

	log.Debugf("Root element type: %s", root.Kind())

	switch root.Kind() {
	case jsontree.Object:
		for _, prop := range root.Members() {
			log.Debugf("Property: %s - Type: %s", prop.Key, prop.Value.Kind())

			switch prop.Value.Kind() {
			case jsontree.Array:
				found, err := e.categoriesFromArray(prop.Value, 2)
				if err != nil {
					return nil, err
				}
				categories = append(categories, found...)
			case jsontree.Object:
				for _, inner := range prop.Value.Members() {
					if !inner.Value.IsArray() {
						continue
					}
					found, err := e.categoriesFromArray(inner.Value, 3)
					if err != nil {
						return nil, err
					}
					categories = append(categories, found...)
				}
			}
		}
	case jsontree.Array:
		found, err := e.categoriesFromArray(root, 1)
		if err != nil {
			return nil, err
		}
		categories = append(categories, found...)
	}

	log.Debugf("Found %d categories", len(categories))
	return categories, nil
}

func (e *Extractor) categoriesFromArray(array *jsontree.Node, depth int) ([]domain.Category, error) {
	if err := e.checkDepth(depth); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, array.Len())
	for _, item := range array.Items() {
		if !hasResolvableName(item) {
			continue
		}
		category, err := e.newCategory(item, depth+1)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (e *Extractor) newCategory(node *jsontree.Node, depth int) (domain.Category, error) {
	if err := e.checkDepth(depth); err != nil {
		return domain.Category{}, err
	}

	name, _ := ResolveString(node, NameFields)
	section, hasSection := ResolveString(node, SectionFields)

	category := domain.Category{
		ID:            ResolveInt(node, IDFields),
		Name:          name,
		SectionName:   domain.UnknownSection,
		Href:          resolveOptional(node, HrefFields),
		Subcategories: make([]domain.Subcategory, 0),
	}

	parentLabel := name
	if hasSection {
		category.SectionName = section
		parentLabel = section
	}

	if children, ok := firstPresent(node, CategoryChildFields); ok {
		subcategories, err := e.subcategories(children, parentLabel, depth+1)
		if err != nil {
			return domain.Category{}, err
		}
		category.Subcategories = subcategories
	}

	return category, nil
}
