// Package repository provides the gorm-backed menu item store.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/menu/domain"
)

type menuRepository struct{}

func NewMenuRepository() domain.Repository {
	return &menuRepository{}
}

func (r *menuRepository) Insert(ctx context.Context, db *gorm.DB, item *domain.MenuItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *menuRepository) Update(ctx context.Context, db *gorm.DB, item *domain.MenuItem) error {
	return db.WithContext(ctx).Save(item).Error
}

func (r *menuRepository) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM menu_items WHERE account_id = ? AND id = ?`, accountID, id).
		Error
}

func (r *menuRepository) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM menu_items WHERE account_id = ? AND id = ?`, accountID, id).
		Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (r *menuRepository) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM menu_items WHERE account_id = ? ORDER BY created_at ASC`, accountID).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *menuRepository) CountByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM menu_items WHERE account_id = ?`, accountID).
		Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
