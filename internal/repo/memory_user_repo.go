package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
)

// MemoryUserRepo keeps users in process memory. The email index is checked
// under the same lock as the insert, so it behaves like a unique constraint.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return appErr.ErrConflict
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	user := *r.byID[id]
	return &user, nil
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := *user
	return &copied, nil
}
