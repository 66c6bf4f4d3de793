package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Deposit(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	id := env.createAccount(t, "A", "B")

	tests := []struct {
		name        string
		caller      entities.PartyID
		accountID   entities.AccountID
		sum         entities.Amount
		wantErr     error
		wantBalance entities.Amount
	}{
		{name: "creator", caller: "A", accountID: id, sum: 100, wantBalance: 100},
		{name: "co-owner", caller: "B", accountID: id, sum: 50, wantBalance: 150},
		{name: "zero amount", caller: "A", accountID: id, sum: 0, wantBalance: 150},
		{name: "stranger", caller: "C", accountID: id, sum: 10, wantErr: errs.ErrNotAnOwner, wantBalance: 150},
		{name: "unknown account", caller: "A", accountID: 42, sum: 10, wantErr: errs.ErrNotAnOwner, wantBalance: 150},
		{name: "overflow", caller: "A", accountID: id, sum: math.MaxUint64, wantErr: errs.ErrBalanceOverflow, wantBalance: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.ledger.Deposit(ctx, params.NewDeposit(tt.caller, tt.accountID, tt.sum))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantBalance, env.balance(t, id))
		})
	}

	// Only successful deposits are announced.
	assert.Equal(t, []entities.EventType{
		entities.EventAccountCreated,
		entities.EventDeposit,
		entities.EventDeposit,
		entities.EventDeposit,
	}, env.eventTypes(t, "A", id))
}

func TestLedgerService_GetBalance(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	id := env.createAccount(t, "A")
	env.deposit(t, "A", id, 70)

	// Anyone may read a balance.
	b, err := env.ledger.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(70), b)

	_, err = env.ledger.GetBalance(ctx, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLedgerService_ConcurrentDeposits(t *testing.T) {
	env := newTestEnv(t, entities.WithdrawalPolicy{})
	ctx := context.Background()

	owners := []entities.PartyID{"A", "B", "C", "D"}
	id := env.createAccount(t, owners[0], owners[1:]...)

	const perOwner = 25

	var wg sync.WaitGroup
	for _, owner := range owners {
		for i := 0; i < perOwner; i++ {
			wg.Add(1)
			go func(owner entities.PartyID) {
				defer wg.Done()
				assert.NoError(t, env.ledger.Deposit(ctx, params.NewDeposit(owner, id, 2)))
			}(owner)
		}
	}
	wg.Wait()

	assert.Equal(t, entities.Amount(len(owners)*perOwner*2), env.balance(t, id))
}
