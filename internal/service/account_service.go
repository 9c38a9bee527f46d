package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// AccountService defines account administration operations
type AccountService interface {
	// ChangeRole sets another account's role. Administrator only.
	ChangeRole(ctx context.Context, a *token.Assertion, targetID string, req *dto.ChangeRoleRequest) (*dto.AccountResponse, error)
	// UpdateProfile changes the display name of the caller or, for administrators, any account
	UpdateProfile(ctx context.Context, a *token.Assertion, targetID string, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error)
	// Deactivate disables an account. Administrator only.
	Deactivate(ctx context.Context, a *token.Assertion, targetID string) error
}

type accountService struct {
	accounts repository.AccountRepository
	guard    *guard.Guard
	log      *logger.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts repository.AccountRepository, g *guard.Guard, log *logger.Logger) AccountService {
	if log == nil {
		log = logger.NewNop()
	}
	return &accountService{
		accounts: accounts,
		guard:    g,
		log:      log.Named("accounts"),
	}
}

// ChangeRole authorizes against the caller's stored role, so a demoted
// administrator cannot keep granting roles with an old token
func (s *accountService) ChangeRole(ctx context.Context, a *token.Assertion, targetID string, req *dto.ChangeRoleRequest) (*dto.AccountResponse, error) {
	if err := s.guard.AuthorizeFresh(ctx, a, domain.CapManageRoles, ""); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if targetID == a.SubjectID {
		return nil, domain.NewValidationError("role", "administrators cannot change their own role")
	}

	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	if account.Role != role {
		if err := s.accounts.UpdateRole(ctx, targetID, role); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "account role changed",
			logger.AccountID(targetID),
			zap.String("from", string(account.Role)),
			zap.String("to", string(role)),
			zap.String("changed_by", a.SubjectID),
		)
		account.Role = role
	}

	resp := toAccountResponse(account)
	return &resp, nil
}

// UpdateProfile changes the display name
func (s *accountService) UpdateProfile(ctx context.Context, a *token.Assertion, targetID string, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	if err := s.guard.AuthorizeFresh(ctx, a, domain.CapEditOwnProfile, targetID); err != nil {
		return nil, err
	}
	if err := domain.ValidateDisplayName(req.DisplayName); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	name := strings.TrimSpace(req.DisplayName)
	if err := s.accounts.UpdateProfile(ctx, targetID, name); err != nil {
		return nil, err
	}
	account.DisplayName = name

	resp := toAccountResponse(account)
	return &resp, nil
}

// Deactivate disables an account; its existing tokens stop passing fresh checks
func (s *accountService) Deactivate(ctx context.Context, a *token.Assertion, targetID string) error {
	if err := s.guard.AuthorizeFresh(ctx, a, domain.CapManageAccounts, ""); err != nil {
		return err
	}
	if targetID == a.SubjectID {
		return domain.NewValidationError("account_id", "administrators cannot deactivate themselves")
	}

	if err := s.accounts.Deactivate(ctx, targetID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "account deactivated",
		logger.AccountID(targetID),
		zap.String("deactivated_by", a.SubjectID),
	)
	return nil
}
