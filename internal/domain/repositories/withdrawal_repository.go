package repositories

import (
	"context"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// WithdrawalRepository persists withdrawal requests and their approvals.
// Callers lock the owning account before mutating a request.
type WithdrawalRepository interface {
	CreateWithdrawalRequest(context.Context, *entities.WithdrawalRequest) (entities.RequestID, error)
	GetWithdrawalRequest(context.Context, entities.AccountID, entities.RequestID) (*entities.WithdrawalRequest, error)
	AddApproval(ctx context.Context, r *entities.WithdrawalRequest, approver entities.PartyID, at time.Time) error
	// SaveExecution stores the executed flag and time of the request as given.
	SaveExecution(context.Context, *entities.WithdrawalRequest) error
}
