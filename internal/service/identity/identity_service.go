package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/auth"
	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MinPasswordLength = 6

type IdentityUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	Authorize(token string) (domain.Principal, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token string
	User  domain.User
}

type IdentityService struct {
	users      repository.UserRepository
	tokens     *auth.Tokens
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

func NewIdentityService(users repository.UserRepository, tokens *auth.Tokens, bcryptCost int, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, bcryptCost: bcryptCost, logger: logger, now: time.Now}
}

// Register creates an account. Role defaults to user; only seeding code passes admin.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.session(user)
}

// Authenticate does not reveal whether the email or the password was wrong.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.session(*user)
}

func (s *IdentityService) Authorize(token string) (domain.Principal, error) {
	return s.tokens.Parse(token)
}

func (s *IdentityService) session(user domain.User) (*Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ IdentityUseCase = (*IdentityService)(nil)
