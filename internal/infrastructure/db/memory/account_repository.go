package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
)

type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) (*AccountRepository, error) {
	if store == nil {
		return nil, errors.New("nil dependency: store")
	}
	return &AccountRepository{store: store}, nil
}

var _ repositories.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) CreateAccount(ctx context.Context, account *entities.Account) (entities.AccountID, error) {
	var id entities.AccountID

	err := r.store.run(ctx, func(t *tx) error {
		id = t.nextAccountID()
		if err := t.lock(ctx, accountKey(id)); err != nil {
			return err
		}

		a := *account
		a.ID = id
		t.accounts[id] = a
		return nil
	})

	return id, err
}

func (r *AccountRepository) GetAccount(ctx context.Context, id entities.AccountID) (*entities.Account, error) {
	var account entities.Account

	err := r.store.run(ctx, func(t *tx) error {
		a, ok := t.account(id)
		if !ok {
			return fmt.Errorf("account %d: %w", id, errs.ErrNotFound)
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// GetAccountForUpdate holds the account lock until the transaction ends.
func (r *AccountRepository) GetAccountForUpdate(ctx context.Context, id entities.AccountID) (*entities.Account, error) {
	var account entities.Account

	err := r.store.run(ctx, func(t *tx) error {
		if err := t.lock(ctx, accountKey(id)); err != nil {
			return err
		}
		a, ok := t.account(id)
		if !ok {
			return fmt.Errorf("account %d: %w", id, errs.ErrNotFound)
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id entities.AccountID, balance entities.Amount) error {
	return r.store.run(ctx, func(t *tx) error {
		if err := t.lock(ctx, accountKey(id)); err != nil {
			return err
		}
		a, ok := t.account(id)
		if !ok {
			return fmt.Errorf("account %d: %w", id, errs.ErrNotFound)
		}
		a.Balance = balance
		t.accounts[id] = a
		return nil
	})
}

func (r *AccountRepository) GetOwnedAccountCount(ctx context.Context, party entities.PartyID) (int, error) {
	var count int

	err := r.store.run(ctx, func(t *tx) error {
		count = t.count(party)
		return nil
	})

	return count, err
}

func (r *AccountRepository) GetOwnedAccountCountsForUpdate(
	ctx context.Context,
	parties []entities.PartyID,
) (map[entities.PartyID]int, error) {
	counts := make(map[entities.PartyID]int, len(parties))

	err := r.store.run(ctx, func(t *tx) error {
		if err := t.lockAll(ctx, partyKeys(parties)); err != nil {
			return err
		}
		for _, p := range parties {
			counts[p] = t.count(p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *AccountRepository) IncrementOwnedAccountCounts(ctx context.Context, parties []entities.PartyID) error {
	return r.store.run(ctx, func(t *tx) error {
		if err := t.lockAll(ctx, partyKeys(parties)); err != nil {
			return err
		}
		for _, p := range parties {
			t.counts[p] = t.count(p) + 1
		}
		return nil
	})
}

func partyKeys(parties []entities.PartyID) []lockKey {
	keys := make([]lockKey, len(parties))
	for i, p := range parties {
		keys[i] = partyKey(p)
	}
	return keys
}
