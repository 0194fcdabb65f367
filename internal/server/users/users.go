// Package users implements the user registry for the sync server:
// registration, credential verification, and access token issuance.
package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/server/auth"
	"github.com/mkorchagin/quicknotes/internal/server/config"
)

// User is a registered account. PasswordHash is a bcrypt hash; the plain
// password never leaves the handler that received it.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}

// Service keeps the user registry in memory. The server is a development
// peer for the client's sync core; persistence is out of scope.
type Service struct {
	mu                          sync.RWMutex
	byName                      map[string]*User
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		byName:                      make(map[string]*User),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new account. Returns common.ErrUserExists when the
// username is already taken.
func (s *Service) Register(ctx context.Context, userName, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[userName]; ok {
		return nil, common.ErrUserExists
	}

	user := &User{
		ID:           uuid.NewString(),
		UserName:     userName,
		PasswordHash: hash,
	}
	s.byName[userName] = user

	return user, nil
}

// Login verifies credentials and returns a signed access token. Unknown
// users and wrong passwords are indistinguishable to the caller: both
// yield common.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, userName, password string) (string, error) {
	s.mu.RLock()
	user, ok := s.byName[userName]
	s.mu.RUnlock()

	if !ok {
		return "", common.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrInternal
	}

	return token, nil
}

// Authenticate resolves an access token to the user id it was issued for.
func (s *Service) Authenticate(tokenString string) (string, error) {
	userID, err := auth.GetUserIDFromToken(tokenString, s.jwtSecret)
	if err != nil {
		return "", common.ErrInvalidToken
	}
	return userID, nil
}
