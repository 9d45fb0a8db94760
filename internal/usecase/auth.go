package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
	pkgAuth "github.com/polkiloo/snackbar/internal/pkg/auth"
)

// rehashChecker is implemented by hashers able to spot outdated hashes.
type rehashChecker interface {
	NeedsRehash(hash string) bool
}

// AuthUseCase handles staff accounts and token management.
type AuthUseCase struct {
	staff  repository.StaffRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
	logger *zap.Logger
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(repos repository.Factory, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, logger *zap.Logger) *AuthUseCase {
	return &AuthUseCase{staff: repos.Staff(), hasher: hasher, tokens: strategy, logger: logger.Named("auth")}
}

// Register creates a staff account.
func (u *AuthUseCase) Register(ctx context.Context, login, password string, role model.StaffRole) (*model.Staff, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domainErrors.ErrInvalidCredentials
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domainErrors.ErrValidation, role)
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	staff, err := u.staff.Create(ctx, login, hash, role)
	if err != nil {
		return nil, err
	}
	u.logger.Info("staff registered", zap.Int64("staff_id", staff.ID), zap.String("role", string(role)))
	return staff, nil
}

// Bootstrap makes sure a manager account with login exists.
func (u *AuthUseCase) Bootstrap(ctx context.Context, login, password string) error {
	_, err := u.Register(ctx, login, password, model.RoleManager)
	if errors.Is(err, domainErrors.ErrAlreadyExists) {
		return nil
	}
	return err
}

// Authenticate validates credentials and returns auth token.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (*model.Staff, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, "", domainErrors.ErrInvalidCredentials
	}

	staff, err := u.staff.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := u.hasher.Compare(staff.PasswordHash, password); err != nil {
		return nil, "", domainErrors.ErrInvalidCredentials
	}
	if rc, ok := u.hasher.(rehashChecker); ok && rc.NeedsRehash(staff.PasswordHash) {
		u.logger.Warn("password hash uses outdated cost", zap.Int64("staff_id", staff.ID))
	}

	token, err := u.tokens.IssueToken(pkgAuth.Claims{StaffID: staff.ID, Role: string(staff.Role)})
	if err != nil {
		return nil, "", err
	}

	return staff, token, nil
}

// ParseToken extracts staff claims from provided token.
func (u *AuthUseCase) ParseToken(token string) (pkgAuth.Claims, error) {
	if token == "" {
		return pkgAuth.Claims{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

// GetByID fetches staff by identifier.
func (u *AuthUseCase) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	return u.staff.GetByID(ctx, id)
}
