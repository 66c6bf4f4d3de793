package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, creator entities.PartyID, others ...entities.PartyID) *entities.Account {
	t.Helper()
	owners, err := entities.NewOwners(creator, others...)
	require.NoError(t, err)
	return entities.NewAccount(owners, time.Now())
}

func TestManager_CommitAndRollback(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	var id entities.AccountID
	err = trm.Do(ctx, func(ctx context.Context) error {
		id, err = repo.CreateAccount(ctx, newAccount(t, "alice"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, entities.AccountID(1), id)

	boom := errors.New("boom")
	err = trm.Do(ctx, func(ctx context.Context) error {
		if err := repo.UpdateBalance(ctx, id, 100); err != nil {
			return err
		}
		if err := repo.IncrementOwnedAccountCounts(ctx, []entities.PartyID{"alice"}); err != nil {
			return err
		}

		// Changes are visible inside the transaction.
		a, err := repo.GetAccount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entities.Amount(100), a.Balance)

		return boom
	})
	assert.ErrorIs(t, err, boom)

	a, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(0), a.Balance)

	count, err := repo.GetOwnedAccountCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestManager_NestedDoJoinsOuter(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	err = trm.Do(ctx, func(ctx context.Context) error {
		return trm.Do(ctx, func(ctx context.Context) error {
			_, err := repo.CreateAccount(ctx, newAccount(t, "alice"))
			return err
		})
	})
	require.NoError(t, err)

	_, err = repo.GetAccount(ctx, 1)
	assert.NoError(t, err)
}

func TestManager_SerializesTransactions(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := repo.CreateAccount(ctx, newAccount(t, "alice"))
	require.NoError(t, err)

	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := trm.Do(ctx, func(ctx context.Context) error {
				a, err := repo.GetAccountForUpdate(ctx, id)
				if err != nil {
					return err
				}
				return repo.UpdateBalance(ctx, id, a.Balance+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(workers), a.Balance)
}

func TestManager_CommitsAfterContextCanceled(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	err = trm.Do(ctx, func(ctx context.Context) error {
		_, err := repo.CreateAccount(ctx, newAccount(t, "alice"))
		cancel()
		return err
	})
	require.NoError(t, err)

	_, err = repo.GetAccount(context.Background(), 1)
	assert.NoError(t, err)
}

func TestManager_RowLocks(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := repo.CreateAccount(ctx, newAccount(t, "alice"))
	require.NoError(t, err)
	second, err := repo.CreateAccount(ctx, newAccount(t, "bob"))
	require.NoError(t, err)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- trm.Do(ctx, func(ctx context.Context) error {
			if _, err := repo.GetAccountForUpdate(ctx, first); err != nil {
				return err
			}
			close(locked)
			<-release
			return repo.UpdateBalance(ctx, first, 10)
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	// Another account is free.
	require.NoError(t, repo.UpdateBalance(waitCtx, second, 7))

	// The locked one is not, and the wait ends with the context.
	err = repo.UpdateBalance(waitCtx, first, 99)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Plain reads do not wait for the lock.
	a, err := repo.GetAccount(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(0), a.Balance)

	close(release)
	require.NoError(t, <-done)

	a, err = repo.GetAccount(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(10), a.Balance)

	b, err := repo.GetAccount(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(7), b.Balance)

	assert.Zero(t, store.locks.size())
}

func TestManager_RollbackReturnsIdentifier(t *testing.T) {
	store := NewStore()
	trm := NewManager(store)
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()
	boom := errors.New("boom")

	err = trm.Do(ctx, func(ctx context.Context) error {
		if _, err := repo.CreateAccount(ctx, newAccount(t, "alice")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetAccount(ctx, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	id, err := repo.CreateAccount(ctx, newAccount(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, entities.AccountID(1), id)

	assert.Zero(t, store.locks.size())
}

func TestAccountRepository_ReturnsCopies(t *testing.T) {
	store := NewStore()
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := repo.CreateAccount(ctx, newAccount(t, "alice", "bob"))
	require.NoError(t, err)

	a, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	a.Balance = 500

	b, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(0), b.Balance)
	assert.Equal(t, []entities.PartyID{"alice", "bob"}, b.Owners.Slice())
}

func TestAccountRepository_Counts(t *testing.T) {
	store := NewStore()
	repo, err := NewAccountRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, repo.IncrementOwnedAccountCounts(ctx, []entities.PartyID{"alice", "bob"}))
	require.NoError(t, repo.IncrementOwnedAccountCounts(ctx, []entities.PartyID{"alice"}))

	counts, err := repo.GetOwnedAccountCountsForUpdate(ctx, []entities.PartyID{"alice", "bob", "carol"})
	require.NoError(t, err)
	assert.Equal(t, map[entities.PartyID]int{"alice": 2, "bob": 1, "carol": 0}, counts)
}

func TestWithdrawalRepository(t *testing.T) {
	store := NewStore()
	accounts, err := NewAccountRepository(store)
	require.NoError(t, err)
	repo, err := NewWithdrawalRepository(store)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC()

	accountID, err := accounts.CreateAccount(ctx, newAccount(t, "alice", "bob"))
	require.NoError(t, err)
	otherID, err := accounts.CreateAccount(ctx, newAccount(t, "carol"))
	require.NoError(t, err)

	_, err = repo.CreateWithdrawalRequest(ctx, entities.NewWithdrawalRequest(99, "alice", 10, now))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	first, err := repo.CreateWithdrawalRequest(ctx, entities.NewWithdrawalRequest(accountID, "alice", 10, now))
	require.NoError(t, err)
	second, err := repo.CreateWithdrawalRequest(ctx, entities.NewWithdrawalRequest(otherID, "carol", 5, now))
	require.NoError(t, err)
	assert.Equal(t, first+1, second, "identifiers come from one sequence")

	_, err = repo.GetWithdrawalRequest(ctx, otherID, first)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	r, err := repo.GetWithdrawalRequest(ctx, accountID, first)
	require.NoError(t, err)

	owners, err := entities.NewOwners("alice", "bob")
	require.NoError(t, err)
	require.NoError(t, r.Approve(owners, "bob"))
	require.NoError(t, repo.AddApproval(ctx, r, "bob", now))

	err = repo.AddApproval(ctx, r, "bob", now)
	assert.ErrorIs(t, err, errs.ErrAlreadyApproved)

	prev := r.MarkExecuted(now)
	require.NoError(t, repo.SaveExecution(ctx, r))

	r.RestoreExecution(prev)
	require.NoError(t, repo.SaveExecution(ctx, r))
	got, err := repo.GetWithdrawalRequest(ctx, accountID, first)
	require.NoError(t, err)
	assert.False(t, got.Executed)
	assert.Nil(t, got.ExecutedAt)

	r.MarkExecuted(now)
	require.NoError(t, repo.SaveExecution(ctx, r))

	got, err = repo.GetWithdrawalRequest(ctx, accountID, first)
	require.NoError(t, err)
	assert.True(t, got.Approved)
	assert.True(t, got.Executed)
	assert.Equal(t, entities.EXECUTED, got.State())
	assert.Equal(t, []entities.PartyID{"bob"}, got.Approvals.Slice())
}

func TestEventRepository(t *testing.T) {
	store := NewStore()
	repo, err := NewEventRepository(store)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC()

	newEvent := func(id entities.AccountID) *entities.Event {
		e, err := entities.NewEvent(entities.EventDeposit, id, entities.DepositPayload{AccountID: id}, now)
		require.NoError(t, err)
		return e
	}

	first, second, third := newEvent(1), newEvent(2), newEvent(1)
	for _, e := range []*entities.Event{first, second, third} {
		require.NoError(t, repo.SaveEvent(ctx, e))
	}
	assert.ErrorIs(t, repo.SaveEvent(ctx, first), errs.ErrDataConflict)

	pending, err := repo.ListPendingEvents(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	require.NoError(t, repo.MarkEventPublished(ctx, first.ID, now))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.MarkEventFailed(ctx, second.ID, "unreachable"))
	}

	pending, err = repo.ListPendingEvents(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, third.ID, pending[0].ID)

	byAccount, err := repo.ListEventsByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byAccount, 2)
	assert.Equal(t, entities.EventPublished, byAccount[0].Status)
	assert.NotNil(t, byAccount[0].PublishedAt)
	assert.Equal(t, entities.EventPending, byAccount[1].Status)

	byAccount, err = repo.ListEventsByAccount(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, entities.EventFailed, byAccount[0].Status)
	assert.Equal(t, 3, byAccount[0].Attempts)
	assert.Equal(t, "unreachable", byAccount[0].LastError)

	assert.ErrorIs(t, repo.MarkEventFailed(ctx, uuid.Nil, "x"), errs.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	store := NewStore()
	repo, err := NewUserRepository(store)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := repo.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, errs.ErrDataConflict)

	u, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Login)

	u, err = repo.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.Password)

	_, err = repo.GetUserByLogin(ctx, "bob")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
