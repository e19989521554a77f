package domain

import "time"

// Snapshot is a persisted extraction of the full category tree.
type Snapshot struct {
	ID               int64      `json:"id"`
	FetchedAt        time.Time  `json:"fetchedAt"`
	CategoryCount    int        `json:"categoryCount"`
	SubcategoryCount int        `json:"subcategoryCount"`
	Categories       []Category `json:"categories"`
}

func NewSnapshot(fetchedAt time.Time, categories []Category) *Snapshot {
	subcategories := 0
	for _, c := range categories {
		subcategories += CountSubcategories(c.Subcategories)
	}

	return &Snapshot{
		FetchedAt:        fetchedAt,
		CategoryCount:    len(categories),
		SubcategoryCount: subcategories,
		Categories:       categories,
	}
}
