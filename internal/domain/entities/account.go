package entities

import "time"

// AccountID is assigned from a monotonic sequence starting at 1.
type AccountID int64

// Account is a shared balance pool controlled by its owners.
type Account struct {
	ID        AccountID
	Owners    Owners
	Balance   Amount
	CreatedAt time.Time
}

// NewAccount returns an empty account for the given owners.
// The identifier is assigned by the repository.
func NewAccount(owners Owners, now time.Time) *Account {
	return &Account{Owners: owners, CreatedAt: now}
}

// IsOwner reports whether p is listed among the owners.
func (a *Account) IsOwner(p PartyID) bool {
	return a.Owners.Contains(p)
}

// Credit adds sum to the balance.
func (a *Account) Credit(sum Amount) error {
	balance, err := a.Balance.Add(sum)
	if err != nil {
		return err
	}
	a.Balance = balance
	return nil
}

// Debit removes sum from the balance. The balance is left intact on failure.
func (a *Account) Debit(sum Amount) error {
	balance, err := a.Balance.Sub(sum)
	if err != nil {
		return err
	}
	a.Balance = balance
	return nil
}
