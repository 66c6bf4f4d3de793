package params

import (
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/google/uuid"
)

type RequestWithdrawal struct {
	Caller    entities.PartyID
	AccountID entities.AccountID
	Amount    entities.Amount
}

func NewRequestWithdrawal(caller entities.PartyID, accountID entities.AccountID, sum entities.Amount) *RequestWithdrawal {
	return &RequestWithdrawal{Caller: caller, AccountID: accountID, Amount: sum}
}

type ApproveWithdrawal struct {
	Caller    entities.PartyID
	AccountID entities.AccountID
	RequestID entities.RequestID
}

func NewApproveWithdrawal(caller entities.PartyID, accountID entities.AccountID, requestID entities.RequestID) *ApproveWithdrawal {
	return &ApproveWithdrawal{Caller: caller, AccountID: accountID, RequestID: requestID}
}

type Withdraw struct {
	Caller    entities.PartyID
	AccountID entities.AccountID
	RequestID entities.RequestID
}

func NewWithdraw(caller entities.PartyID, accountID entities.AccountID, requestID entities.RequestID) *Withdraw {
	return &Withdraw{Caller: caller, AccountID: accountID, RequestID: requestID}
}

// Transfer describes funds leaving the ledger towards the recipient.
// Reference is unique per execution and serves as an idempotency key.
type Transfer struct {
	Reference uuid.UUID
	AccountID entities.AccountID
	RequestID entities.RequestID
	Recipient entities.PartyID
	Amount    entities.Amount
}
