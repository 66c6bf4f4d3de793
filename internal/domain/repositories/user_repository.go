package repositories

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
)

type UserRepository interface {
	GetUserByID(context.Context, user.ID) (*user.User, error)
	GetUserByLogin(context.Context, string) (*user.User, error)
	CreateUser(ctx context.Context, login, password string) (user.ID, error)
}
