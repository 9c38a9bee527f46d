// Package token issues and validates signed, time-boxed session assertions.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prohmpiriya/event-registration/internal/domain"
)

// DefaultTTL is the assertion lifetime when none is configured
const DefaultTTL = 72 * time.Hour

// Assertion is the validated identity carried by a request
type Assertion struct {
	SubjectID string
	Role      domain.Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the signed JWT payload
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds token service settings
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Service issues and validates assertions. It holds no per-token state.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a new assertion for accountID with a snapshot of role
func (s *Service) Issue(accountID string, role domain.Role) (string, *Assertion, error) {
	if accountID == "" {
		return "", nil, errors.New("account id is required")
	}
	if !role.IsValid() {
		return "", nil, domain.ErrInvalidRole
	}

	// JWT timestamps have second precision
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &Assertion{
		SubjectID: accountID,
		Role:      role,
		TokenID:   claims.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies signature, algorithm, issuer and expiry. Any failure is
// reported as domain.ErrTokenExpired or domain.ErrInvalidToken.
func (s *Service) Validate(tokenString string) (*Assertion, error) {
	if tokenString == "" {
		return nil, domain.ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role", domain.ErrInvalidToken)
	}

	a := &Assertion{
		SubjectID: claims.Subject,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		a.IssuedAt = claims.IssuedAt.Time
	}
	return a, nil
}
