package extractor

import (
	"math"
	"strconv"
	"strings"

	"zara/scraper/internal/jsontree"
)

// Candidate keys per logical field, in priority order.
var (
	NameFields    = []string{"name", "title", "label"}
	HrefFields    = []string{"href", "url", "link"}
	SectionFields = []string{"sectionName", "section", "category", "type"}
	IDFields      = []string{"id"}

	// CategoryChildFields locate the subcategory array of a top-level category.
	// Only the first key present is used, whatever its type.
	CategoryChildFields = []string{"subcategories", "children", "items"}
)

// NestedField holds the children of a subcategory and the subcategories of a
// category found by the document-wide walks.
const NestedField = "subcategories"

// ResolveString returns the first candidate whose value is a JSON string.
func ResolveString(node *jsontree.Node, keys []string) (string, bool) {
	for _, key := range keys {
		v, ok := node.Get(key)
		if !ok {
			continue
		}
		if s, ok := v.Str(); ok {
			return s, true
		}
	}
	return "", false
}

// ResolveInt returns the first candidate that coerces to an integer. Numbers are
// truncated, strings must parse as a base 10 integer. Anything else yields 0.
func ResolveInt(node *jsontree.Node, keys []string) int {
	for _, key := range keys {
		v, ok := node.Get(key)
		if !ok {
			continue
		}
		if n, ok := coerceInt(v); ok {
			return n
		}
	}
	return 0
}

func coerceInt(v *jsontree.Node) (int, bool) {
	if num, ok := v.Num(); ok {
		if i, err := num.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i), true
		}
		f, err := num.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		f = math.Trunc(f)
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int(f), true
	}

	if s, ok := v.Str(); ok {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return i, true
	}

	return 0, false
}

func resolveOptional(node *jsontree.Node, keys []string) *string {
	s, ok := ResolveString(node, keys)
	if !ok {
		return nil
	}
	return &s
}

func firstPresent(node *jsontree.Node, keys []string) (*jsontree.Node, bool) {
	for _, key := range keys {
		if v, ok := node.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// hasResolvableName reports whether node is an object that can become a
// Category or Subcategory. Objects failing it are dropped without an error.
func hasResolvableName(node *jsontree.Node) bool {
	if !node.IsObject() {
		return false
	}
	name, ok := ResolveString(node, NameFields)
	return ok && name != ""
}
