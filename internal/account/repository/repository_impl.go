// Package repository provides the gorm-backed account store.
package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/account/domain"
)

type accountRepository struct{}

func NewAccountRepository() domain.Repository {
	return &accountRepository{}
}

func (r *accountRepository) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM accounts WHERE id = ?`, id).
		Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM accounts WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &account, nil
}

func (r *accountRepository) FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM accounts WHERE stripe_customer_id = ?`, customerID).
		Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &account, nil
}

func (r *accountRepository) SetStripeCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error {
	return db.WithContext(ctx).
		Exec(`UPDATE accounts SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, customerID, id).
		Error
}
