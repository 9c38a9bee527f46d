package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/repository"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/audit"
	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// LoginRecorder receives login attempts for the audit trail
type LoginRecorder interface {
	RecordLogin(ctx context.Context, attempt audit.LoginAttempt)
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Register creates an account and returns a session for it
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	// Login verifies credentials and returns a session
	Login(ctx context.Context, req *dto.LoginRequest, client dto.ClientInfo) (*dto.AuthResponse, error)
	// Me returns the caller's current account
	Me(ctx context.Context, a *token.Assertion) (*dto.AccountResponse, error)
	// Bootstrap creates the first administrator if it does not exist
	Bootstrap(ctx context.Context, email, password string) error
}

// AuthServiceConfig holds auth service settings
type AuthServiceConfig struct {
	BcryptCost int
}

type authService struct {
	accounts repository.AccountRepository
	tokens   *token.Service
	hasher   *PasswordHasher
	logins   LoginRecorder
	log      *logger.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService. logins may be nil.
func NewAuthService(
	accounts repository.AccountRepository,
	tokens *token.Service,
	logins LoginRecorder,
	cfg *AuthServiceConfig,
	log *logger.Logger,
) AuthService {
	if cfg == nil {
		cfg = &AuthServiceConfig{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &authService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   NewPasswordHasher(cfg.BcryptCost),
		logins:   logins,
		log:      log.Named("auth"),
		now:      time.Now,
	}
}

// Register creates an account. Administrators cannot be self-requested.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidateSecret(req.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateDisplayName(req.DisplayName); err != nil {
		return nil, err
	}

	role := domain.RoleMember
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		if !parsed.SelfAssignable() {
			return nil, domain.ErrInvalidRole
		}
		role = parsed
	}

	account, err := s.createAccount(ctx, email, req.Password, req.DisplayName, role)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "account registered",
		logger.AccountID(account.ID),
		zap.String("role", string(account.Role)),
	)
	return s.issue(account)
}

// Login verifies credentials. Unknown identifiers, wrong secrets and
// deactivated accounts all return domain.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, client dto.ClientInfo) (*dto.AuthResponse, error) {
	attempt := audit.LoginAttempt{
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		RequestID: client.RequestID,
	}

	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account == nil {
		s.hasher.Burn(req.Password)
		s.recordFailure(ctx, attempt, "unknown_identifier")
		return nil, domain.ErrInvalidCredentials
	}

	attempt.AccountID = account.ID
	attempt.Role = string(account.Role)

	ok, err := s.hasher.Verify(account.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify secret: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, attempt, "wrong_secret")
		return nil, domain.ErrInvalidCredentials
	}
	if !account.CanAuthenticate() {
		s.recordFailure(ctx, attempt, "deactivated")
		return nil, domain.ErrInvalidCredentials
	}

	resp, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	attempt.Success = true
	if s.logins != nil {
		s.logins.RecordLogin(ctx, attempt)
	}
	return resp, nil
}

// Me returns the caller's stored account
func (s *authService) Me(ctx context.Context, a *token.Assertion) (*dto.AccountResponse, error) {
	if a == nil || a.SubjectID == "" {
		return nil, domain.ErrUnauthenticated
	}
	account, err := s.accounts.GetByID(ctx, a.SubjectID)
	if err != nil {
		return nil, err
	}
	if !account.CanAuthenticate() {
		return nil, domain.ErrUnauthenticated
	}
	resp := toAccountResponse(account)
	return &resp, nil
}

// Bootstrap creates an administrator when the email is not yet registered
func (s *authService) Bootstrap(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	if err := domain.ValidateSecret(password); err != nil {
		return err
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	account, err := s.createAccount(ctx, email, password, "Administrator", domain.RoleAdministrator)
	if errors.Is(err, domain.ErrIdentifierTaken) {
		// another instance bootstrapped first
		return nil
	}
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "bootstrap administrator created", logger.AccountID(account.ID))
	return nil
}

func (s *authService) createAccount(ctx context.Context, email, secret, displayName string, role domain.Role) (*domain.Account, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *authService) issue(account *domain.Account) (*dto.AuthResponse, error) {
	signed, assertion, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(assertion.ExpiresAt.Sub(assertion.IssuedAt).Seconds()),
		ExpiresAt:   assertion.ExpiresAt.UTC().Format(time.RFC3339),
		Account:     toAccountResponse(account),
	}, nil
}

func (s *authService) recordFailure(ctx context.Context, attempt audit.LoginAttempt, reason string) {
	if s.logins == nil {
		return
	}
	attempt.Reason = reason
	s.logins.RecordLogin(ctx, attempt)
}

func toAccountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
		IsActive:    account.IsActive,
		CreatedAt:   account.CreatedAt.UTC().Format(time.RFC3339),
	}
}
