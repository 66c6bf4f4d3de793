package interfaces

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
)

// AuthService registers users and resolves callers from tokens.
type AuthService interface {
	Register(ctx context.Context, login, password string) (token string, err error)
	Login(ctx context.Context, login, password string) (token string, err error)
	GetUserFromToken(ctx context.Context, token string) (*user.User, error)
}
