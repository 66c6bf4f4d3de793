package interfaces

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// AccountService creates accounts under the ownership limits.
type AccountService interface {
	CreateAccount(context.Context, *params.CreateAccount) (entities.AccountID, error)
	GetOwnedAccountCount(context.Context, entities.PartyID) (int, error)
	GetAccount(ctx context.Context, caller entities.PartyID, id entities.AccountID) (*entities.Account, error)
}

// LedgerService holds account balances.
type LedgerService interface {
	Deposit(context.Context, *params.Deposit) error
	GetBalance(context.Context, entities.AccountID) (entities.Amount, error)
}
