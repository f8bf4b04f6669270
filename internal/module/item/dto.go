package item

import "github.com/simp-lee/itemhub/internal/domain"

// CreateItemRequest is the body of POST /items and one element of a bulk import.
// Price and Tax are pointers so that an explicit 0 passes "required".
type CreateItemRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Tax         *float64 `json:"tax" binding:"omitempty,gte=0"`
}

func (r CreateItemRequest) toInput() domain.ItemInput {
	in := domain.ItemInput{
		Name:        r.Name,
		Description: r.Description,
		Tax:         r.Tax,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	return in
}

// UpdateItemRequest is the body of PUT /items/:id. Omitted fields are left
// untouched; the service validates the fields that are present.
type UpdateItemRequest struct {
	Name        domain.Optional[string]  `json:"name"`
	Description domain.Optional[string]  `json:"description"`
	Price       domain.Optional[float64] `json:"price"`
	Tax         domain.Optional[float64] `json:"tax"`
}

func (r UpdateItemRequest) toPatch() domain.ItemPatch {
	return domain.ItemPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Tax:         r.Tax,
	}
}
