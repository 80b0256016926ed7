package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// UserStore is the part of the local user table that auth needs.
type UserStore interface {
	Insert(ctx context.Context, u *catalog.User) error
	FindByFirstName(ctx context.Context, firstName string) (*catalog.User, error)
}

// Session is returned by a successful login.
type Session struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"`
	User      *catalog.User `json:"user"`
}

type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenManager
}

func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register stores a new local user with a bcrypt hash for local logins and
// the SHA-256 digest the mobile clients check. The row stays unsynced until
// the next run uploads it.
func (s *Service) Register(ctx context.Context, firstName, lastName, password string) (*catalog.User, error) {
	u := &catalog.User{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Password:  password,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	_, err := s.users.FindByFirstName(ctx, u.FirstName)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrUserExists, u.FirstName)
	case !errors.Is(err, catalog.ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u.LocalHash = hash
	u.Password = s.hasher.Digest(password)

	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}

	logger.Log.Info("User registered", zap.Int64("userID", u.ID), zap.String("firstName", u.FirstName))
	return u, nil
}

func (s *Service) Login(ctx context.Context, firstName, password string) (*Session, error) {
	u, err := s.users.FindByFirstName(ctx, strings.TrimSpace(firstName))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	stored := u.Password
	if u.LocalHash != "" {
		stored = u.LocalHash
	}
	if !s.hasher.Verify(password, stored) {
		logger.Log.Warn("Login rejected", zap.String("firstName", u.FirstName))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.ID, u.FirstName)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      u,
	}, nil
}

// Authenticate validates a session token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Validate(token)
}
