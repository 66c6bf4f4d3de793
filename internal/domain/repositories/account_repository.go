package repositories

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// AccountRepository persists accounts and the per-party account counters.
// Methods ending in ForUpdate lock what they read until the surrounding
// transaction ends.
type AccountRepository interface {
	CreateAccount(context.Context, *entities.Account) (entities.AccountID, error)
	GetAccount(context.Context, entities.AccountID) (*entities.Account, error)
	GetAccountForUpdate(context.Context, entities.AccountID) (*entities.Account, error)
	UpdateBalance(context.Context, entities.AccountID, entities.Amount) error
	GetOwnedAccountCount(context.Context, entities.PartyID) (int, error)
	GetOwnedAccountCountsForUpdate(context.Context, []entities.PartyID) (map[entities.PartyID]int, error)
	IncrementOwnedAccountCounts(context.Context, []entities.PartyID) error
}
