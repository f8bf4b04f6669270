package item

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
)

const maxNameLength = 255

// itemService implements domain.ItemService.
type itemService struct {
	repo domain.ItemRepository
}

// NewItemService creates a new ItemService with the given repository.
func NewItemService(repo domain.ItemRepository) domain.ItemService {
	return &itemService{repo: repo}
}

func (s *itemService) List(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error) {
	return s.repo.List(ctx, req)
}

func (s *itemService) Get(ctx context.Context, id uint) (*domain.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates in and persists a new item. A nil tax is stored as 0.
func (s *itemService) Create(ctx context.Context, in domain.ItemInput) (*domain.Item, error) {
	item, details := buildItem(in, "")
	if details != nil {
		return nil, domain.NewValidationError("Validation error", details)
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateBulk validates every input before writing anything, then inserts
// the batch in one statement. Callers run it inside a transaction.
func (s *itemService) CreateBulk(ctx context.Context, in []domain.ItemInput) ([]domain.Item, error) {
	if len(in) == 0 {
		return nil, domain.NewValidationError("At least one item is required", map[string]string{"items": "min=1"})
	}

	items := make([]domain.Item, len(in))
	details := make(map[string]string)
	for i, input := range in {
		item, d := buildItem(input, pkg.ItemsPrefix(i))
		for k, v := range d {
			details[k] = v
		}
		items[i] = item
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError("Validation error", details)
	}

	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies only the fields present in patch. An empty patch returns
// the stored item unchanged. A null description clears it.
func (s *itemService) Update(ctx context.Context, id uint, patch domain.ItemPatch) (*domain.Item, error) {
	if patch.IsEmpty() {
		return s.repo.GetByID(ctx, id)
	}

	details := make(map[string]string)
	if patch.Name.Set {
		if patch.Name.Null {
			details["name"] = "required"
		} else if msg := validateName(patch.Name.Value); msg != "" {
			details["name"] = msg
		}
	}
	if msg := validateAmount(patch.Price); msg != "" {
		details["price"] = msg
	}
	if msg := validateAmount(patch.Tax); msg != "" {
		details["tax"] = msg
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError("Validation error", details)
	}

	return s.repo.Update(ctx, id, patch.Columns())
}

// Delete reports false when no item has the given id.
func (s *itemService) Delete(ctx context.Context, id uint) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// buildItem converts in and returns field errors keyed by prefix+name.
// The name is stored as sent.
func buildItem(in domain.ItemInput, prefix string) (domain.Item, map[string]string) {
	item := domain.Item{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if in.Tax != nil {
		item.Tax = *in.Tax
	}

	var details map[string]string
	add := func(field, msg string) {
		if details == nil {
			details = make(map[string]string)
		}
		details[prefix+field] = msg
	}
	if msg := validateName(item.Name); msg != "" {
		add("name", msg)
	}
	if item.Price < 0 {
		add("price", "gte=0")
	}
	if item.Tax < 0 {
		add("tax", "gte=0")
	}
	return item, details
}

func validateName(name string) string {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "required"
	case n > maxNameLength:
		return fmt.Sprintf("max=%d", maxNameLength)
	}
	return ""
}

// validateAmount checks a patched price or tax. Both columns are NOT NULL.
func validateAmount(v domain.Optional[float64]) string {
	switch {
	case !v.Set:
		return ""
	case v.Null:
		return "required"
	case v.Value < 0:
		return "gte=0"
	}
	return ""
}
