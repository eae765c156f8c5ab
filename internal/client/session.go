package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xxxsen/nl2sql/internal/model"
)

const (
	StorageKeyToken = "token"
	StorageKeyUser  = "user"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Signup(ctx context.Context, email, password, name string) (*AuthResult, error)
}

// Session holds the signed-in user and token. It is restored from storage
// when created and mirrored back to storage on every change.
type Session struct {
	mu      sync.RWMutex
	api     Authenticator
	storage Storage
	user    *model.PublicUser
	token   string
}

// NewSession restores a previous session when storage holds both a token and
// a decodable user. Anything less starts signed out.
func NewSession(api Authenticator, storage Storage) (*Session, error) {
	s := &Session{api: api, storage: storage}
	token, okToken, err := storage.Get(StorageKeyToken)
	if err != nil {
		return nil, err
	}
	rawUser, okUser, err := storage.Get(StorageKeyUser)
	if err != nil {
		return nil, err
	}
	if !okToken || !okUser || token == "" {
		return s, nil
	}
	var user model.PublicUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return s, nil
	}
	s.user = &user
	s.token = token
	return s, nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.establish(res)
}

func (s *Session) Signup(ctx context.Context, email, password, name string) error {
	res, err := s.api.Signup(ctx, email, password, name)
	if err != nil {
		return err
	}
	return s.establish(res)
}

// Logout forgets the session locally. The token itself stays valid until it
// expires.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(StorageKeyToken, StorageKeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.user = nil
	s.token = ""
	return nil
}

func (s *Session) User() *model.PublicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) establish(res *AuthResult) error {
	if res == nil || res.User == nil || res.Token == "" {
		return fmt.Errorf("incomplete auth response")
	}
	rawUser, err := json.Marshal(res.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(map[string]string{
		StorageKeyToken: res.Token,
		StorageKeyUser:  string(rawUser),
	}); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	user := *res.User
	s.user = &user
	s.token = res.Token
	return nil
}
