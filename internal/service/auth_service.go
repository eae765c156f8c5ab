package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
	"github.com/xxxsen/nl2sql/internal/pkg/jwt"
	"github.com/xxxsen/nl2sql/internal/pkg/password"
	"github.com/xxxsen/nl2sql/internal/repo"
)

type AuthService struct {
	users     repo.IUserRepo
	jwtSecret []byte
	jwtTTL    time.Duration
	now       func() time.Time
}

func NewAuthService(users repo.IUserRepo, secret []byte, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = jwt.DefaultTTL
	}
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl, now: time.Now}
}

// Signup creates the user and returns it with a fresh token. An email that is
// already taken yields ErrConflict, whether the pre-check or the store's
// unique index catches it.
func (s *AuthService) Signup(ctx context.Context, email, plainPassword, name string) (*model.PublicUser, string, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("email", email))
	if email == "" || plainPassword == "" || name == "" {
		return nil, "", appErr.ErrInvalid
	}
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Info("signup rejected, user already exists")
		return nil, "", appErr.ErrConflict
	case !appErr.IsNotFound(err):
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, "", fmt.Errorf("%w: %w", appErr.ErrInvalid, err)
		}
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsConflict(err) {
			logger.Info("signup rejected by unique index")
			return nil, "", appErr.ErrConflict
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	token, err := s.issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	logger.Info("user created", zap.String("user_id", user.ID))
	return user.Public(), token, nil
}

// ValidateUser returns the user when email and password match, and nil when
// either does not. Callers cannot tell the two failure cases apart.
func (s *AuthService) ValidateUser(ctx context.Context, email, plainPassword string) (*model.PublicUser, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("email", email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			logger.Debug("credential check failed", zap.String("reason", "no such user"))
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	ok, err := password.Verify(user.PasswordHash, plainPassword)
	if err != nil {
		logger.Warn("stored password hash is unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return nil, nil
	}
	if !ok {
		logger.Debug("credential check failed", zap.String("reason", "password mismatch"))
		return nil, nil
	}
	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.PublicUser, string, error) {
	if email == "" || plainPassword == "" {
		return nil, "", appErr.ErrInvalid
	}
	user, err := s.ValidateUser(ctx, email, plainPassword)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := s.issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("login succeeded", zap.String("user_id", user.ID))
	return user, token, nil
}

func (s *AuthService) issue(userID, email string) (string, error) {
	token, err := jwt.GenerateTokenAt(userID, email, s.jwtSecret, s.jwtTTL, s.now())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
