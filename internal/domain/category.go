package domain

// UnknownSection is used when a category carries none of the section synonyms.
const UnknownSection = "Unknown"

// Category is a top-level entry of the retailer's category listing.
type Category struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	SectionName   string        `json:"sectionName"`
	Href          *string       `json:"href"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Subcategory is a node of the tree below a Category. ParentSectionName is the
// label of the category the subtree was extracted for, shared by every descendant.
type Subcategory struct {
	ID                int           `json:"id"`
	Name              string        `json:"name"`
	Href              *string       `json:"href"`
	ParentSectionName string        `json:"parentSectionName"`
	Children          []Subcategory `json:"children"`
}

// CountSubcategories returns the number of subcategory nodes at any depth.
func CountSubcategories(subcategories []Subcategory) int {
	total := 0
	for _, s := range subcategories {
		total += 1 + CountSubcategories(s.Children)
	}
	return total
}
