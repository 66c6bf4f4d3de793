package params

import "github.com/KretovDmitry/joint-account-service/internal/domain/entities"

type CreateAccount struct {
	Caller      entities.PartyID
	OtherOwners []entities.PartyID
}

func NewCreateAccount(caller entities.PartyID, otherOwners ...entities.PartyID) *CreateAccount {
	return &CreateAccount{Caller: caller, OtherOwners: otherOwners}
}

type Deposit struct {
	Caller    entities.PartyID
	AccountID entities.AccountID
	Amount    entities.Amount
}

func NewDeposit(caller entities.PartyID, accountID entities.AccountID, sum entities.Amount) *Deposit {
	return &Deposit{Caller: caller, AccountID: accountID, Amount: sum}
}
