package domain

import "context"

// Item is a catalog entry. Price and tax are non-negative.
type Item struct {
	BaseModel
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	Tax         float64 `gorm:"not null;default:0" json:"tax"`
}

// ItemInput carries the fields of a new item. A nil Tax means 0.
type ItemInput struct {
	Name        string
	Description *string
	Price       float64
	Tax         *float64
}

// ItemPatch is a merge-patch. Absent fields are left untouched; an explicit
// null clears Description and is rejected for the other fields.
type ItemPatch struct {
	Name        Optional[string]
	Description Optional[string]
	Price       Optional[float64]
	Tax         Optional[float64]
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Price.Set && !p.Tax.Set
}

// Columns returns the column/value pairs the patch writes. A null
// description maps to a nil value so the column is set to NULL.
func (p ItemPatch) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if p.Name.Set {
		cols["name"] = p.Name.Value
	}
	if p.Description.Set {
		if p.Description.Null {
			cols["description"] = nil
		} else {
			cols["description"] = p.Description.Value
		}
	}
	if p.Price.Set {
		cols["price"] = p.Price.Value
	}
	if p.Tax.Set {
		cols["tax"] = p.Tax.Value
	}
	return cols
}

// ItemRepository defines the data access interface for items.
type ItemRepository interface {
	List(ctx context.Context, req PageRequest) ([]Item, int64, error)
	GetByID(ctx context.Context, id uint) (*Item, error)
	Create(ctx context.Context, item *Item) error
	CreateBatch(ctx context.Context, items []Item) error
	Update(ctx context.Context, id uint, cols map[string]any) (*Item, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// ItemService defines the business logic interface for items.
type ItemService interface {
	List(ctx context.Context, req PageRequest) ([]Item, int64, error)
	Get(ctx context.Context, id uint) (*Item, error)
	Create(ctx context.Context, in ItemInput) (*Item, error)
	CreateBulk(ctx context.Context, in []ItemInput) ([]Item, error)
	Update(ctx context.Context, id uint, patch ItemPatch) (*Item, error)
	Delete(ctx context.Context, id uint) (bool, error)
}
