package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/google/uuid"

	"github.com/xxxsen/nl2sql/internal/model"
	"github.com/xxxsen/nl2sql/internal/pkg/dbutil"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
)

// IUserRepo persists user records. Create returns ErrConflict when the
// store rejects a duplicate email, GetBy* return ErrNotFound on a miss.
type IUserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
}

var userFields = []string{"id", "email", "password_hash", "name", "ctime"}

type PGUserRepo struct {
	db *sql.DB
}

func NewPGUserRepo(db *sql.DB) *PGUserRepo {
	return &PGUserRepo{db: db}
}

func (r *PGUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	data := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"name":          user.Name,
		"ctime":         user.CreatedAt.UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PGUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *PGUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *PGUserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var (
		user  model.User
		ctime int64
	)
	if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &ctime); err != nil {
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(ctime).UTC()
	return &user, nil
}
