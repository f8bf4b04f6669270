package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/token"
)

// Service defines the authentication operations.
type Service interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	IssueTokens(userID uint) (*token.Pair, error)
	RefreshTokens(refreshToken string) (*token.Pair, error)
}

// TokenIssuer is the subset of token.Service the auth service needs.
type TokenIssuer interface {
	IssuePair(userID uint) (*token.Pair, error)
	Refresh(refreshToken string) (*token.Pair, error)
}

// authService implements Service.
type authService struct {
	users      domain.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	// dummyHash is compared against on unknown emails so both login
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewService creates a new auth Service. A bcryptCost of 0 means bcrypt.DefaultCost.
func NewService(users domain.UserRepository, tokens TokenIssuer, bcryptCost int) Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("itemhub-placeholder-password"), bcryptCost)
	return &authService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

// Register creates an active user with a bcrypt-hashed password.
func (s *authService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.NewAppError(domain.CodeAlreadyExists, "Email already registered", nil)
	case !domain.IsNotFound(err):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	user := domain.User{
		Email:          email,
		HashedPassword: string(hash),
		IsActive:       true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies credentials. Unknown email and wrong password both
// return domain.ErrInvalidCredentials.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.NewAppError(domain.CodeInternal, "failed to verify password", err)
	}
	return user, nil
}

func (s *authService) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *authService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// IssueTokens mints an access/refresh pair for userID.
func (s *authService) IssueTokens(userID uint) (*token.Pair, error) {
	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to issue tokens", err)
	}
	return pair, nil
}

// RefreshTokens exchanges a refresh token for a new access token.
func (s *authService) RefreshTokens(refreshToken string) (*token.Pair, error) {
	pair, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		if domain.IsInvalidToken(err) {
			return nil, domain.NewAppError(domain.CodeInvalidToken, "Invalid or expired refresh token", err)
		}
		return nil, domain.NewAppError(domain.CodeInternal, "failed to refresh tokens", err)
	}
	return pair, nil
}
