package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
)

// OwnershipGuard answers whether a party owns an account.
// Unknown accounts are reported as not owned.
type OwnershipGuard struct {
	accountRepo repositories.AccountRepository
}

func NewOwnershipGuard(accountRepo repositories.AccountRepository) (*OwnershipGuard, error) {
	if accountRepo == nil {
		return nil, errors.New("nil dependency: account repository")
	}
	return &OwnershipGuard{accountRepo: accountRepo}, nil
}

// IsOwner reports whether party is listed among the owners of the account.
func (g *OwnershipGuard) IsOwner(ctx context.Context, id entities.AccountID, party entities.PartyID) (bool, error) {
	account, err := g.accountRepo.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.IsOwner(party), nil
}

// Authorize locks the account for the rest of the transaction and returns it
// if party owns it. Every mutating operation starts here.
func (g *OwnershipGuard) Authorize(ctx context.Context, id entities.AccountID, party entities.PartyID) (*entities.Account, error) {
	account, err := g.accountRepo.GetAccountForUpdate(ctx, id)
	return g.check(account, err, id, party)
}

// AuthorizeRead is Authorize without the lock, for owner-only reads.
func (g *OwnershipGuard) AuthorizeRead(ctx context.Context, id entities.AccountID, party entities.PartyID) (*entities.Account, error) {
	account, err := g.accountRepo.GetAccount(ctx, id)
	return g.check(account, err, id, party)
}

func (g *OwnershipGuard) check(account *entities.Account, err error, id entities.AccountID, party entities.PartyID) (*entities.Account, error) {
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d", errs.ErrNotAnOwner, id)
		}
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	if !account.IsOwner(party) {
		return nil, fmt.Errorf("%w: account %d", errs.ErrNotAnOwner, id)
	}
	return account, nil
}
