package item

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
)

// setupTestDB creates a file-backed SQLite database with the items table.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "items.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Item{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func seedItems(t *testing.T, repo domain.ItemRepository, n int) []domain.Item {
	t.Helper()
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{Name: "item-" + string(rune('a'+i)), Price: float64(i + 1)}
	}
	if err := repo.CreateBatch(context.Background(), items); err != nil {
		t.Fatalf("seed items: %v", err)
	}
	return items
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	item := &domain.Item{Name: "Widget", Description: strPtr("blue"), Price: 9.99, Tax: 0.5}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if item.ID == 0 {
		t.Fatal("Create() did not assign an id")
	}
	if !item.CreatedAt.Equal(item.UpdatedAt) {
		t.Errorf("created_at %v != updated_at %v", item.CreatedAt, item.UpdatedAt)
	}

	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Widget" || got.Price != 9.99 || got.Tax != 0.5 {
		t.Errorf("got %+v; want Widget 9.99 0.5", got)
	}
	if got.Description == nil || *got.Description != "blue" {
		t.Errorf("Description = %v; want blue", got.Description)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), 42)
	if !domain.IsNotFound(err) {
		t.Fatalf("error = %v; want not found", err)
	}
	if msg := err.(*domain.AppError).Message; msg != "Item not found" {
		t.Errorf("Message = %q; want %q", msg, "Item not found")
	}
}

func TestRepository_List(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	seeded := seedItems(t, repo, 5)
	ctx := context.Background()

	page, total, err := repo.List(ctx, domain.PageRequest{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d; want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d; want 2", len(page))
	}
	if page[0].ID != seeded[2].ID || page[1].ID != seeded[3].ID {
		t.Errorf("page ids = %d,%d; want %d,%d", page[0].ID, page[1].ID, seeded[2].ID, seeded[3].ID)
	}

	beyond, total, err := repo.List(ctx, domain.PageRequest{Page: 10, PerPage: 2})
	if err != nil {
		t.Fatalf("List() beyond error = %v", err)
	}
	if total != 5 {
		t.Errorf("total beyond last page = %d; want 5", total)
	}
	if len(beyond) != 0 {
		t.Errorf("len(beyond) = %d; want 0", len(beyond))
	}
}

func TestRepository_List_SaturatedOffsetIsEmpty(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	seedItems(t, repo, 3)

	items, total, err := repo.List(context.Background(), domain.PageRequest{Page: 1844674407370955163, PerPage: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d; want 0", len(items))
	}
	if total != 3 {
		t.Errorf("total = %d; want 3", total)
	}
}

func TestRepository_List_OrderedByID(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	seedItems(t, repo, 4)

	items, _, err := repo.List(context.Background(), domain.PageRequest{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ID >= items[i].ID {
			t.Errorf("items[%d].ID = %d not below items[%d].ID = %d", i-1, items[i-1].ID, i, items[i].ID)
		}
	}
}

func TestRepository_CreateBatch_AssignsIDs(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	items := seedItems(t, repo, 3)

	seen := map[uint]bool{}
	for _, it := range items {
		if it.ID == 0 {
			t.Error("batch item without id")
		}
		if seen[it.ID] {
			t.Errorf("duplicate id %d", it.ID)
		}
		seen[it.ID] = true
	}
	if err := repo.CreateBatch(context.Background(), nil); err != nil {
		t.Errorf("CreateBatch(nil) error = %v", err)
	}
}

func TestRepository_Update(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	ctx := context.Background()
	item := &domain.Item{Name: "Widget", Description: strPtr("old"), Price: 1, Tax: 0.1}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := repo.Update(ctx, item.ID, map[string]any{"price": 2.5, "tax": 0.0})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != item.ID || updated.Name != "Widget" || *updated.Description != "old" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.Price != 2.5 || updated.Tax != 0 {
		t.Errorf("price/tax = %v/%v; want 2.5/0", updated.Price, updated.Tax)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}

	same, err := repo.Update(ctx, item.ID, nil)
	if err != nil {
		t.Fatalf("Update(nil) error = %v", err)
	}
	if same.Price != 2.5 {
		t.Errorf("Price after empty update = %v; want 2.5", same.Price)
	}

	if _, err := repo.Update(ctx, 999, map[string]any{"price": 1.0}); !domain.IsNotFound(err) {
		t.Errorf("Update(999) error = %v; want not found", err)
	}
}

func TestRepository_Update_NullClearsDescription(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	ctx := context.Background()
	item := &domain.Item{Name: "Widget", Description: strPtr("old"), Price: 1}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := repo.Update(ctx, item.ID, map[string]any{"description": nil})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != nil {
		t.Errorf("Description = %q; want nil", *updated.Description)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	ctx := context.Background()
	item := &domain.Item{Name: "Widget", Price: 1}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := repo.Delete(ctx, item.ID)
	if err != nil || !deleted {
		t.Fatalf("first Delete() = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = repo.Delete(ctx, item.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete() = %v, %v; want false, nil", deleted, err)
	}
	if _, err := repo.GetByID(ctx, item.ID); !domain.IsNotFound(err) {
		t.Errorf("GetByID() after delete error = %v; want not found", err)
	}
}

func TestRepository_RollsBackWithContextTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewItemRepository(db)

	rollback := errors.New("rollback")
	err := pkg.WithTx(context.Background(), db, func(ctx context.Context) error {
		if err := repo.Create(ctx, &domain.Item{Name: "temp", Price: 1}); err != nil {
			t.Fatalf("Create() in tx error = %v", err)
		}
		_, total, err := repo.List(ctx, domain.PageRequest{Page: 1, PerPage: 10})
		if err != nil {
			t.Fatalf("List() in tx error = %v", err)
		}
		if total != 1 {
			t.Errorf("total in tx = %d; want 1", total)
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("WithTx() error = %v; want %v", err, rollback)
	}

	_, total, err := repo.List(context.Background(), domain.PageRequest{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 {
		t.Errorf("total after rollback = %d; want 0", total)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError(nil); err != nil {
		t.Errorf("mapError(nil) = %v; want nil", err)
	}
	if err := mapError(gorm.ErrRecordNotFound); !domain.IsNotFound(err) {
		t.Errorf("mapError(ErrRecordNotFound) = %v; want not found", err)
	}
	if err := mapError(errors.New("disk I/O error")); !domain.IsInternal(err) {
		t.Errorf("mapError(other) = %v; want internal", err)
	}
}
