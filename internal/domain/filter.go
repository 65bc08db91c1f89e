package domain

// FilterCriteria narrows candidates by metadata. Zero value matches everything.
type FilterCriteria struct {
	Types         []string   `json:"types,omitempty"`
	Importance    []string   `json:"importance,omitempty"`
	ProductIDs    []string   `json:"product_ids,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	MinImportance Importance `json:"min_importance,omitempty"`
}

// IsEmpty reports whether the criteria impose no constraint.
func (c FilterCriteria) IsEmpty() bool {
	return len(c.Types) == 0 && len(c.Importance) == 0 && len(c.ProductIDs) == 0 &&
		len(c.Categories) == 0 && c.MinImportance == ""
}

// Matches reports whether d satisfies every set constraint.
func (c FilterCriteria) Matches(d *Document) bool {
	if len(c.Types) > 0 && !contains(c.Types, d.Metadata.Type) {
		return false
	}
	if len(c.Importance) > 0 && !contains(c.Importance, string(d.Metadata.Importance)) {
		return false
	}
	if len(c.ProductIDs) > 0 && !contains(c.ProductIDs, d.Metadata.ProductID) {
		return false
	}
	if len(c.Categories) > 0 && !contains(c.Categories, d.Metadata.Category) {
		return false
	}
	if c.MinImportance != "" && d.Metadata.Importance.Rank() < c.MinImportance.Rank() {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
