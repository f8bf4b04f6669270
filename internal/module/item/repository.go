package item

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
)

// itemRepository implements domain.ItemRepository using GORM.
type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new ItemRepository backed by the given GORM database.
func NewItemRepository(db *gorm.DB) domain.ItemRepository {
	return &itemRepository{db: db}
}

// List returns one page of items ordered by id and the total row count.
// The count is taken separately so it stays correct past the last page.
func (r *itemRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error) {
	conn := pkg.Conn(ctx, r.db)

	var total int64
	if err := conn.Model(&domain.Item{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	var items []domain.Item
	err := conn.Order("id ASC").Offset(req.Offset()).Limit(req.PerPage).Find(&items).Error
	if err != nil {
		return nil, 0, mapError(err)
	}
	return items, total, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*domain.Item, error) {
	var item domain.Item
	if err := pkg.Conn(ctx, r.db).First(&item, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	return mapError(pkg.Conn(ctx, r.db).Create(item).Error)
}

// CreateBatch inserts all items in a single statement.
func (r *itemRepository) CreateBatch(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return mapError(pkg.Conn(ctx, r.db).Create(&items).Error)
}

// Update writes cols to the item and returns the stored row.
func (r *itemRepository) Update(ctx context.Context, id uint, cols map[string]any) (*domain.Item, error) {
	conn := pkg.Conn(ctx, r.db)

	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return item, nil
	}

	if err := conn.Model(item).Updates(cols).Error; err != nil {
		return nil, mapError(err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the item and reports whether a row existed.
func (r *itemRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := pkg.Conn(ctx, r.db).Delete(&domain.Item{}, id)
	if result.Error != nil {
		return false, mapError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("Item")
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}
