package response

import (
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

type RequestWithdrawal struct {
	RequestID entities.RequestID `json:"request_id"`
}

type ApproveWithdrawal struct {
	Approved bool `json:"approved"`
}

type WithdrawalRequest struct {
	CreatedAt  time.Time             `json:"created_at"`
	ExecutedAt *time.Time            `json:"executed_at,omitempty"`
	Requester  entities.PartyID      `json:"requester"`
	Amount     string                `json:"amount"`
	State      entities.RequestState `json:"state"`
	Approvals  []entities.PartyID    `json:"approvals"`
	ID         entities.RequestID    `json:"id"`
	AccountID  entities.AccountID    `json:"account_id"`
	Approved   bool                  `json:"approved"`
	Executed   bool                  `json:"executed"`
}

// NewWithdrawalRequest renders r with its amount in major units of currency.
func NewWithdrawalRequest(r *entities.WithdrawalRequest, currency entities.Currency) WithdrawalRequest {
	return WithdrawalRequest{
		ID:         r.ID,
		AccountID:  r.AccountID,
		Requester:  r.Requester,
		Amount:     currency.Format(r.Amount),
		Approvals:  r.Approvals.Slice(),
		Approved:   r.Approved,
		Executed:   r.Executed,
		State:      r.State(),
		CreatedAt:  r.CreatedAt,
		ExecutedAt: r.ExecutedAt,
	}
}
