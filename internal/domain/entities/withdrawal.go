package entities

import (
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
)

// RequestID is assigned from one global sequence shared by all accounts.
type RequestID int64

// RequestState is the lifecycle stage reported for a request.
type RequestState string

const (
	PENDING  RequestState = "PENDING"
	APPROVED RequestState = "APPROVED"
	EXECUTED RequestState = "EXECUTED"
)

// WithdrawalRequest is an owner's intent to take funds out of an account.
type WithdrawalRequest struct {
	ID         RequestID
	AccountID  AccountID
	Requester  PartyID
	Amount     Amount
	Approvals  Approvals
	Approved   bool
	Executed   bool
	CreatedAt  time.Time
	ExecutedAt *time.Time
}

// NewWithdrawalRequest creates a pending request without approvals.
// The identifier is assigned by the repository.
func NewWithdrawalRequest(accountID AccountID, requester PartyID, sum Amount, now time.Time) *WithdrawalRequest {
	return &WithdrawalRequest{
		AccountID: accountID,
		Requester: requester,
		Amount:    sum,
		CreatedAt: now,
	}
}

// Approve counts the vote of approver, who must be one of the owners.
// The request becomes approved once every owner except the requester voted,
// whatever the order of the votes.
func (r *WithdrawalRequest) Approve(owners Owners, approver PartyID) error {
	if approver == r.Requester {
		return errs.ErrSelfApprovalForbidden
	}
	if err := r.Approvals.Add(approver); err != nil {
		return err
	}
	if r.Approvals.Len() == owners.Len()-1 {
		r.Approved = true
	}
	return nil
}

// Execution is the executed flag of a request together with its time.
type Execution struct {
	Executed bool
	At       *time.Time
}

// MarkExecuted records a withdrawal and returns the execution it replaced.
func (r *WithdrawalRequest) MarkExecuted(now time.Time) Execution {
	prev := Execution{Executed: r.Executed, At: r.ExecutedAt}
	r.Executed = true
	r.ExecutedAt = &now
	return prev
}

// RestoreExecution puts back an execution returned by MarkExecuted.
func (r *WithdrawalRequest) RestoreExecution(e Execution) {
	r.Executed = e.Executed
	r.ExecutedAt = e.At
}

func (r *WithdrawalRequest) State() RequestState {
	switch {
	case r.Executed:
		return EXECUTED
	case r.Approved:
		return APPROVED
	default:
		return PENDING
	}
}

// WithdrawalPolicy decides how strictly execution is gated.
// With the zero value approval is advisory and a request may be
// executed again while funds last.
type WithdrawalPolicy struct {
	RequireApproval bool
	SingleExecution bool
}

// CheckExecution validates that caller may execute r under the policy.
func (p WithdrawalPolicy) CheckExecution(r *WithdrawalRequest, caller PartyID) error {
	if caller != r.Requester {
		return errs.ErrNotRequestOwner
	}
	if p.RequireApproval && !r.Approved {
		return errs.ErrRequestNotApproved
	}
	if p.SingleExecution && r.Executed {
		return errs.ErrAlreadyExecuted
	}
	return nil
}
