package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Relay(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	id := env.createAccount(t, "A", "B")
	env.deposit(t, "B", id, 25)

	env.publisher.failures[entities.EventDeposit] = errBoom

	n, err := env.notifications.Relay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	published := env.publisher.all()
	require.Len(t, published, 1)
	assert.Equal(t, entities.EventAccountCreated, published[0].Type)

	var created entities.AccountCreatedPayload
	require.NoError(t, json.Unmarshal(published[0].Payload, &created))
	assert.Equal(t, entities.PartyID("A"), created.Caller)
	assert.Equal(t, id, created.AccountID)
	assert.Equal(t, []entities.PartyID{"A", "B"}, created.Owners.Slice())

	events, err := env.notifications.GetEvents(ctx, "A", id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entities.EventPublished, events[0].Status)
	assert.Equal(t, entities.EventFailed, events[1].Status)
	assert.Equal(t, 1, events[1].Attempts)
	assert.Equal(t, errBoom.Error(), events[1].LastError)

	// The failed event is retried until it goes through.
	delete(env.publisher.failures, entities.EventDeposit)

	n, err = env.notifications.Relay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	published = env.publisher.all()
	require.Len(t, published, 2)
	var deposit entities.DepositPayload
	require.NoError(t, json.Unmarshal(published[1].Payload, &deposit))
	assert.Equal(t, entities.PartyID("B"), deposit.Caller)
	assert.Equal(t, entities.Amount(25), deposit.Amount)
	assert.Equal(t, fixedNow, deposit.Timestamp)

	n, err = env.notifications.Relay(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationService_RelayGivesUp(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	env.createAccount(t, "A")
	env.publisher.failures[entities.EventAccountCreated] = errBoom

	for i := 0; i < env.config.Notifications.MaxAttempts+2; i++ {
		_, err := env.notifications.Relay(ctx)
		require.NoError(t, err)
	}

	pending, err := env.eventRepo.ListPendingEvents(ctx, 10, env.config.Notifications.MaxAttempts)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events, err := env.notifications.GetEvents(ctx, "A", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, env.config.Notifications.MaxAttempts, events[0].Attempts)
}

func TestNotificationService_RunStop(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})

	env.notifications.Run()

	id := env.createAccount(t, "A")
	env.deposit(t, "A", id, 1)

	assert.Eventually(t, func() bool {
		return len(env.publisher.all()) == 2
	}, time.Second, 5*time.Millisecond)

	env.notifications.Stop()
	// Stopping twice is harmless.
	env.notifications.Stop()
}

func TestNotificationService_GetEvents(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	id := env.createAccount(t, "A", "B")
	other := env.createAccount(t, "C")

	events, err := env.notifications.GetEvents(ctx, "B", id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].AccountID)

	_, err = env.notifications.GetEvents(ctx, "A", other)
	assert.ErrorIs(t, err, errs.ErrNotAnOwner)
}
