package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fructus/internal/core/apperror"
	"fructus/internal/domain/account"
	"fructus/pkg/logger"
)

// Token is an issued token with its expiry.
type Token struct {
	Value     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service issues tokens. There is a single admin secured by a bcrypt
// hash from configuration; seller tokens are minted by the admin per
// account and handed to the bot front end.
type Service struct {
	accounts      account.Repository
	jwtService    *JWTService
	adminHash     string
	adminTokenTTL time.Duration
	sellerTTL     time.Duration
}

// NewService creates the auth service. adminHash is the bcrypt hash of
// the admin password.
func NewService(accounts account.Repository, jwtService *JWTService, cfg JWTConfig, adminHash string) *Service {
	return &Service{
		accounts:      accounts,
		jwtService:    jwtService,
		adminHash:     adminHash,
		adminTokenTTL: cfg.AdminTokenTTL,
		sellerTTL:     cfg.SellerTokenTTL,
	}
}

// LoginAdmin checks the admin password against the configured hash and
// issues an admin token.
func (s *Service) LoginAdmin(ctx context.Context, password string) (*Token, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		logger.Warn(ctx, "admin login rejected")
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	value, expiresAt, err := s.jwtService.GenerateToken(RoleAdmin, "", s.adminTokenTTL)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "admin logged in")
	return &Token{Value: value, Role: RoleAdmin, ExpiresAt: expiresAt}, nil
}

// IssueSellerToken mints a token bound to a seller account. Admin only;
// the handler enforces the role, this enforces the account state.
func (s *Service) IssueSellerToken(ctx context.Context, accountCode string) (*Token, error) {
	acc, err := s.accounts.GetByCode(ctx, accountCode)
	if err != nil {
		return nil, err
	}
	if !acc.IsActive {
		return nil, apperror.NewForbidden("account is not active")
	}
	if acc.IsCentral {
		return nil, apperror.NewValidation("central account cannot hold a seller token")
	}

	value, expiresAt, err := s.jwtService.GenerateToken(RoleSeller, acc.ID.String(), s.sellerTTL)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "seller token issued", "account", acc.Code)
	return &Token{Value: value, Role: RoleSeller, ExpiresAt: expiresAt}, nil
}
