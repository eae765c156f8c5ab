package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
	"github.com/xxxsen/nl2sql/internal/pkg/jwt"
	"github.com/xxxsen/nl2sql/internal/pkg/password"
	"github.com/xxxsen/nl2sql/internal/repo"
)

var testSecret = []byte("test-secret")

type spyUserRepo struct {
	repo.IUserRepo
	calls atomic.Int32
}

func (s *spyUserRepo) Create(ctx context.Context, user *model.User) error {
	s.calls.Add(1)
	return s.IUserRepo.Create(ctx, user)
}

func (s *spyUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.calls.Add(1)
	return s.IUserRepo.GetByEmail(ctx, email)
}

type failingUserRepo struct {
	repo.IUserRepo
	err error
}

func (f failingUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, f.err
}

// racingUserRepo hides every record from GetByEmail, so only the store's
// own uniqueness check can reject a duplicate.
type racingUserRepo struct {
	repo.IUserRepo
}

func (racingUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, appErr.ErrNotFound
}

func newTestAuthService() (*AuthService, *spyUserRepo) {
	users := &spyUserRepo{IUserRepo: repo.NewMemoryUserRepo()}
	return NewAuthService(users, testSecret, jwt.DefaultTTL), users
}

func TestSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthService()

	user, token, err := auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "a@x.com", user.Email)
	require.Equal(t, "A", user.Name)
	require.NotEmpty(t, token)

	loggedIn, loginToken, err := auth.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)
	claims, err := jwt.ParseToken(loginToken, testSecret)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestSignupDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthService()
	_, _, err := auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	_, _, err = auth.Signup(ctx, "a@x.com", "other-pw", "B")
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestSignupConflictFromStoreIndex(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(racingUserRepo{IUserRepo: repo.NewMemoryUserRepo()}, testSecret, jwt.DefaultTTL)
	_, _, err := auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	_, _, err = auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestConcurrentSignupsCreateOneUser(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthService()
	const workers = 6
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := auth.Signup(ctx, "race@x.com", "pw123456", "R")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, appErr.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(workers-1), conflicts.Load())
}

func TestSignupMissingFieldsSkipsStore(t *testing.T) {
	auth, users := newTestAuthService()
	_, _, err := auth.Signup(context.Background(), "a@x.com", "", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Zero(t, users.calls.Load())
}

func TestSignupOverlongPasswordIsInvalid(t *testing.T) {
	auth, users := newTestAuthService()
	_, _, err := auth.Signup(context.Background(), "a@x.com", strings.Repeat("p", 73), "A")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.ErrorIs(t, err, password.ErrTooLong)

	_, err = users.GetByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthService()
	_, _, err := auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)

	_, _, wrongPw := auth.Login(ctx, "a@x.com", "wrong")
	_, _, noUser := auth.Login(ctx, "nouser@x.com", "x")
	require.ErrorIs(t, wrongPw, appErr.ErrUnauthorized)
	require.ErrorIs(t, noUser, appErr.ErrUnauthorized)
	require.Equal(t, wrongPw.Error(), noUser.Error())
}

func TestValidateUserStripsHash(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthService()
	_, _, err := auth.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)

	user, err := auth.ValidateUser(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.IsType(t, &model.PublicUser{}, user)

	user, err = auth.ValidateUser(ctx, "a@x.com", "nope")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestValidateUserMalformedHashIsAbsent(t *testing.T) {
	ctx := context.Background()
	users := repo.NewMemoryUserRepo()
	require.NoError(t, users.Create(ctx, &model.User{Email: "bad@x.com", PasswordHash: "garbage", Name: "B"}))
	auth := NewAuthService(users, testSecret, jwt.DefaultTTL)

	user, err := auth.ValidateUser(ctx, "bad@x.com", "garbage")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestStoreFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	auth := NewAuthService(failingUserRepo{IUserRepo: repo.NewMemoryUserRepo(), err: boom}, testSecret, jwt.DefaultTTL)

	_, _, err := auth.Login(context.Background(), "a@x.com", "pw123456")
	require.ErrorIs(t, err, boom)
	_, _, err = auth.Signup(context.Background(), "a@x.com", "pw123456", "A")
	require.ErrorIs(t, err, boom)
}

func TestTokenExpiryUsesServiceClock(t *testing.T) {
	auth, _ := newTestAuthService()
	fixed := time.Now().Add(-time.Hour).Truncate(time.Second)
	auth.now = func() time.Time { return fixed }

	_, token, err := auth.Signup(context.Background(), "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	claims, err := jwt.ParseToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, fixed.Unix(), claims.IssuedAt.Unix())
	require.Equal(t, fixed.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}
