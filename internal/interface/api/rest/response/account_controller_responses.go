package response

import (
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

type CreateAccount struct {
	AccountID entities.AccountID `json:"account_id"`
}

type OwnedAccountCount struct {
	Count int `json:"count"`
}

type Account struct {
	CreatedAt time.Time          `json:"created_at"`
	Balance   string             `json:"balance"`
	Owners    []entities.PartyID `json:"owners"`
	ID        entities.AccountID `json:"id"`
}

func NewAccount(a *entities.Account, currency entities.Currency) Account {
	return Account{
		ID:        a.ID,
		Owners:    a.Owners.Slice(),
		Balance:   currency.Format(a.Balance),
		CreatedAt: a.CreatedAt,
	}
}

type Balance struct {
	Balance   string             `json:"balance"`
	AccountID entities.AccountID `json:"account_id"`
}
