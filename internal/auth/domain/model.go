// Package domain contains the session auth models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
)

// Session is an opaque server-side session. The token is the cookie value.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Token     string       `gorm:"type:text;uniqueIndex;not null" json:"-"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Identity is the authenticated principal attached to a request.
type Identity struct {
	AccountID snowflake.ID
	Role      accountdomain.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == accountdomain.RoleAdmin }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*Session, error)
	DeleteByToken(ctx context.Context, db *gorm.DB, token string) error
	DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) error
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*accountdomain.Account, *Session, error)
	Login(ctx context.Context, req LoginRequest) (*accountdomain.Account, *Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
	ErrWeakPassword       = errors.New("weak_password")
)
