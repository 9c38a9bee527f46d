package service

import (
	"context"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/guard"
	"github.com/prohmpiriya/event-registration/internal/repository"
)

// accountRoles reads stored roles for fresh authorization checks
type accountRoles struct {
	accounts repository.AccountRepository
}

// NewRoleSource adapts an AccountRepository to guard.RoleSource
func NewRoleSource(accounts repository.AccountRepository) guard.RoleSource {
	return &accountRoles{accounts: accounts}
}

func (r *accountRoles) CurrentRole(ctx context.Context, accountID string) (domain.Role, bool, error) {
	account, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", false, err
	}
	if account == nil {
		return "", false, domain.ErrAccountNotFound
	}
	return account.Role, account.CanAuthenticate(), nil
}
