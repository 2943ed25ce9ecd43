package catalog

import "time"

// Item kinds offered in the catalog.
const (
	KindService = "service"
	KindPackage = "package"
)

// Category groups catalog items (e.g. "Consultoría", "Marketing Digital").
type Category struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Item is a sellable service or package.
type Item struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Title       string    `json:"title"`
	Kind        string    `json:"kind"`
	CategoryID  string    `json:"category_id"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot is a read-only view of an org's catalog used for one conversation turn.
type Snapshot struct {
	OrgID      string     `json:"org_id"`
	Categories []Category `json:"categories"`
	Items      []Item     `json:"items"`
}

// CategoryByID returns the category with the given id.
func (s *Snapshot) CategoryByID(id string) (Category, bool) {
	if s == nil {
		return Category{}, false
	}
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// ItemsInCategory lists the items filed under a category id.
func (s *Snapshot) ItemsInCategory(categoryID string) []Item {
	if s == nil {
		return nil
	}
	var out []Item
	for _, it := range s.Items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out
}

// ItemDraft is the input for creating a catalog item.
type ItemDraft struct {
	OrgID       string
	Title       string
	Kind        string
	CategoryID  string
	Description string
	Price       *float64
}

// Validate checks the draft has the fields every store requires.
func (d ItemDraft) Validate() error {
	switch {
	case d.OrgID == "":
		return ErrMissingOrgID
	case d.Title == "":
		return ErrMissingTitle
	case d.CategoryID == "":
		return ErrMissingCategory
	}
	if d.Kind != KindService && d.Kind != KindPackage {
		return ErrInvalidKind
	}
	return nil
}

// CategoryDraft is the input for creating a category.
type CategoryDraft struct {
	OrgID       string
	Name        string
	Description string
}

// Validate checks the draft has the fields every store requires.
func (d CategoryDraft) Validate() error {
	if d.OrgID == "" {
		return ErrMissingOrgID
	}
	if d.Name == "" {
		return ErrMissingName
	}
	return nil
}
