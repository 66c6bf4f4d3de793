package interfaces

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// WithdrawalService runs the request, approve, execute workflow.
type WithdrawalService interface {
	RequestWithdrawal(context.Context, *params.RequestWithdrawal) (entities.RequestID, error)
	ApproveWithdrawal(context.Context, *params.ApproveWithdrawal) (approved bool, err error)
	Withdraw(context.Context, *params.Withdraw) error
	GetWithdrawalRequest(ctx context.Context, caller entities.PartyID,
		accountID entities.AccountID, requestID entities.RequestID) (*entities.WithdrawalRequest, error)
}

// Transferer moves released funds out of the ledger.
type Transferer interface {
	Transfer(context.Context, *params.Transfer) error
}
