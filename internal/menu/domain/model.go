// Package domain contains the menu item models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LimitKeyMenuItems is the entitlement limit key this package counts
// against.
const LimitKeyMenuItems = "menu_items"

// MenuItem is a single dish on a restaurant menu.
type MenuItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID `gorm:"not null;index" json:"account_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	PriceCents  int64        `gorm:"not null" json:"price_cents"`
	Category    string       `gorm:"type:text" json:"category"`
	Available   bool         `gorm:"not null;default:true" json:"available"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MenuItem) TableName() string { return "menu_items" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *MenuItem) error
	Update(ctx context.Context, db *gorm.DB, item *MenuItem) error
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*MenuItem, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]MenuItem, error)
	CountByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
}

var (
	ErrMenuItemNotFound = errors.New("menu_item_not_found")
	ErrInvalidMenuItem  = errors.New("invalid_menu_item")
)
