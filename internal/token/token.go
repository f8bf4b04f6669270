// Package token issues and verifies the stateless access/refresh JWT pair.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/simp-lee/itemhub/internal/domain"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// TypeBearer is the token_type reported to clients.
const TypeBearer = "bearer"

// Defaults applied when Options leaves a field zero.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultAlgorithm  = "HS256"
)

// Claims are the JWT claims carried by both token kinds.
// Subject holds the user id as a decimal string.
type Claims struct {
	Type Kind `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("subject %q is not a user id", c.Subject)
	}
	return uint(id), nil
}

// Pair is the token bundle returned by register, login and refresh.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Options configures a Service.
type Options struct {
	Secret        string
	Algorithm     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Service signs and verifies tokens with a single shared secret.
type Service struct {
	secret        []byte
	method        jwt.SigningMethod
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
	now           func() time.Time
}

// NewService validates opts and returns a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("token: secret must not be empty")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	method, err := signingMethod(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		secret:        []byte(opts.Secret),
		method:        method,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		rotateRefresh: opts.RotateRefresh,
		now:           opts.Now,
	}, nil
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("token: unsupported algorithm %q", alg)
	}
}

// IssuePair mints a fresh access and refresh token for userID.
func (s *Service) IssuePair(userID uint) (*Pair, error) {
	access, err := s.sign(userID, Access, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, Refresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, TokenType: TypeBearer}, nil
}

func (s *Service) sign(userID uint, kind Kind, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm and expiry and returns the claims.
// Every failure is reported as domain.ErrInvalidToken wrapping the cause.
func (s *Service) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, invalid(err)
	}

	if claims.Type != Access && claims.Type != Refresh {
		return nil, invalid(fmt.Errorf("unknown token type %q", claims.Type))
	}
	if _, err := claims.UserID(); err != nil {
		return nil, invalid(err)
	}
	return claims, nil
}

// DecodeAs is Decode plus a check that the token is of the given kind.
func (s *Service) DecodeAs(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := s.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != kind {
		return nil, invalid(fmt.Errorf("expected %s token, got %s", kind, claims.Type))
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is returned unchanged unless rotation is enabled.
func (s *Service) Refresh(refreshToken string) (*Pair, error) {
	claims, err := s.DecodeAs(refreshToken, Refresh)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	if s.rotateRefresh {
		return s.IssuePair(userID)
	}

	access, err := s.sign(userID, Access, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refreshToken, TokenType: TypeBearer}, nil
}

func invalid(err error) error {
	return &domain.AppError{
		Code:    domain.CodeInvalidToken,
		Message: domain.ErrInvalidToken.Message,
		Err:     err,
	}
}
