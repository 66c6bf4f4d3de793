package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) (*UserRepository, error) {
	if store == nil {
		return nil, errors.New("nil dependency: store")
	}
	return &UserRepository{store: store}, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	var u user.User

	err := r.store.run(ctx, func(t *tx) error {
		stored, ok := t.userByID(id)
		if !ok {
			return fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
		}
		u = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	var u user.User

	err := r.store.run(ctx, func(t *tx) error {
		id, ok := t.userID(login)
		if !ok {
			return fmt.Errorf("user %q: %w", login, errs.ErrNotFound)
		}
		u, _ = t.userByID(id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, login, password string) (user.ID, error) {
	var id user.ID

	err := r.store.run(ctx, func(t *tx) error {
		// The login lock makes the existence check and the insert atomic.
		if err := t.lock(ctx, loginKey(login)); err != nil {
			return err
		}
		if _, ok := t.userID(login); ok {
			return errs.ErrDataConflict
		}

		id = t.nextUserID()

		now := time.Now().UTC()
		t.users[id] = user.User{
			ID:        id,
			Login:     login,
			Password:  password,
			CreatedAt: now,
			UpdatedAt: now,
		}
		t.logins[login] = id
		return nil
	})
	if err != nil {
		return -1, err
	}

	return id, nil
}
