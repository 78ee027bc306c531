// Package service implements session authentication.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	"github.com/dinehq/dinehq/internal/auth/domain"
	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
)

const minPasswordLength = 8

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	sessions   domain.Repository
	accounts   accountdomain.Repository
	sessionTTL time.Duration
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sessions domain.Repository
	Accounts accountdomain.Repository
}

func NewService(p ServiceParam) domain.Service {
	ttl := time.Duration(p.Cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		sessions:   p.Sessions,
		accounts:   p.Accounts,
		sessionTTL: ttl,
	}
}

// Register implements domain.Service.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*accountdomain.Account, *domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if len(req.Password) < minPasswordLength {
		return nil, nil, domain.ErrWeakPassword
	}

	if _, err := s.accounts.FindByEmail(ctx, s.db, email); err == nil {
		return nil, nil, accountdomain.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now().UTC()
	account := &accountdomain.Account{
		ID:           s.genID.Generate(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
		Role:         accountdomain.RoleOwner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Insert(ctx, s.db, account); err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(ctx, account.ID, now)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("account registered", zap.String("account_id", account.ID.String()))
	return account, session, nil
}

// Login implements domain.Service.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*accountdomain.Account, *domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	account, err := s.accounts.FindByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, account.ID, s.clock.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	return account, session, nil
}

// Logout implements domain.Service.
func (s *Service) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.sessions.DeleteByToken(ctx, s.db, token)
}

// Authenticate implements domain.Service. It resolves a cookie token to the
// identity behind it.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.FindByToken(ctx, s.db, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if s.clock.Now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteByToken(ctx, s.db, token)
		return nil, domain.ErrSessionExpired
	}

	account, err := s.accounts.FindByID(ctx, s.db, session.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	return &domain.Identity{AccountID: account.ID, Role: account.Role}, nil
}

func (s *Service) issueSession(ctx context.Context, accountID snowflake.ID, now time.Time) (*domain.Session, error) {
	session := &domain.Session{
		ID:        s.genID.Generate(),
		Token:     uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Insert(ctx, s.db, session); err != nil {
		return nil, err
	}
	return session, nil
}
