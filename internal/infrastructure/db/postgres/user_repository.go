package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
)

type UserRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewUserRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &UserRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	const query = "SELECT id, login, password, created_at, updated_at FROM users WHERE id = $1"

	u, err := r.getUser(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	const query = "SELECT id, login, password, created_at, updated_at FROM users WHERE login = $1"

	u, err := r.getUser(ctx, query, login)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", login, err)
	}
	return u, nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	u := new(user.User)

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Login,
		&u.Password,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, login, password string) (user.ID, error) {
	const query = "INSERT INTO users (login, password) VALUES ($1, $2) RETURNING id"

	var id user.ID

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, login, password).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return -1, errs.ErrDataConflict
		}
		return -1, fmt.Errorf("create user: %w", err)
	}

	return id, nil
}
