package services

import (
	"context"
	"testing"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	token, err := env.auth.Register(ctx, "alice", "password")
	require.NoError(t, err)

	u, err := env.auth.GetUserFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Login)
	assert.NotEqual(t, "password", u.Password, "password is stored hashed")

	_, err = env.auth.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, errs.ErrDataConflict)

	token, err = env.auth.Login(ctx, "alice", "password")
	require.NoError(t, err)
	u2, err := env.auth.GetUserFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)

	_, err = env.auth.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "bob", "password")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = env.auth.GetUserFromToken(ctx, "Bearer garbage")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	// A valid token for a user that does not exist.
	orphan, err := jwt.BuildString(999, env.config.JWT.SigningKey, env.config.JWT.Expiration)
	require.NoError(t, err)
	_, err = env.auth.GetUserFromToken(ctx, orphan)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
