// Package repository provides the gorm-backed session store.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/auth/domain"
)

type sessionRepository struct{}

func NewSessionRepository() domain.Repository {
	return &sessionRepository{}
}

func (r *sessionRepository) Insert(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM sessions WHERE token = ?`, token).
		Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM sessions WHERE token = ?`, token).
		Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM sessions WHERE expires_at < ?`, before).
		Error
}
