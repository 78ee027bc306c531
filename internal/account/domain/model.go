// Package domain contains the account models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Role is the account authorization role.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Account is a restaurant account. One account owns at most one live
// subscription at a time.
type Account struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Email            string       `gorm:"type:text;uniqueIndex;not null" json:"email"`
	DisplayName      string       `gorm:"type:text" json:"display_name"`
	PasswordHash     string       `gorm:"type:text;not null" json:"-"`
	Role             Role         `gorm:"type:text;not null;default:owner" json:"role"`
	StripeCustomerID *string      `gorm:"type:text;uniqueIndex" json:"-"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
	FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*Account, error)
	SetStripeCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error
}

var (
	ErrAccountNotFound = errors.New("account_not_found")
	ErrEmailTaken      = errors.New("email_already_registered")
)
