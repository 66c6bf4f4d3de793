package entities

import (
	"testing"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveIsOrderIndependent(t *testing.T) {
	owners, err := NewOwners("alice", "bob", "carol", "dave")
	require.NoError(t, err)

	orders := [][]PartyID{
		{"bob", "carol", "dave"},
		{"dave", "bob", "carol"},
		{"carol", "dave", "bob"},
	}

	for _, order := range orders {
		r := NewWithdrawalRequest(1, "alice", 10, time.Now())
		for i, p := range order {
			require.NoError(t, r.Approve(owners, p))
			assert.Equal(t, i == len(order)-1, r.Approved)
		}
		assert.Equal(t, APPROVED, r.State())
	}
}

func TestApproveRejections(t *testing.T) {
	owners, err := NewOwners("alice", "bob")
	require.NoError(t, err)

	r := NewWithdrawalRequest(1, "alice", 10, time.Now())

	assert.ErrorIs(t, r.Approve(owners, "alice"), errs.ErrSelfApprovalForbidden)
	require.NoError(t, r.Approve(owners, "bob"))
	assert.ErrorIs(t, r.Approve(owners, "bob"), errs.ErrAlreadyApproved)
	assert.Equal(t, 1, r.Approvals.Len())
	assert.True(t, r.Approved)
}

func TestSingleOwnerRequestNeverApproved(t *testing.T) {
	owners, err := NewOwners("alice")
	require.NoError(t, err)

	r := NewWithdrawalRequest(1, "alice", 10, time.Now())

	assert.ErrorIs(t, r.Approve(owners, "alice"), errs.ErrSelfApprovalForbidden)
	assert.False(t, r.Approved)
	assert.Equal(t, PENDING, r.State())
}

func TestWithdrawalPolicy(t *testing.T) {
	pending := NewWithdrawalRequest(1, "alice", 10, time.Now())

	executed := NewWithdrawalRequest(1, "alice", 10, time.Now())
	executed.Approved = true
	executed.MarkExecuted(time.Now())

	tests := []struct {
		name    string
		policy  WithdrawalPolicy
		request *WithdrawalRequest
		caller  PartyID
		wantErr error
	}{
		{
			name:    "not the requester",
			request: pending,
			caller:  "bob",
			wantErr: errs.ErrNotRequestOwner,
		},
		{
			name:    "advisory approval lets pending request through",
			request: pending,
			caller:  "alice",
		},
		{
			name:    "advisory policy allows re-execution",
			request: executed,
			caller:  "alice",
		},
		{
			name:    "approval required",
			policy:  WithdrawalPolicy{RequireApproval: true},
			request: pending,
			caller:  "alice",
			wantErr: errs.ErrRequestNotApproved,
		},
		{
			name:    "single execution",
			policy:  WithdrawalPolicy{SingleExecution: true},
			request: executed,
			caller:  "alice",
			wantErr: errs.ErrAlreadyExecuted,
		},
		{
			name:    "requester checked first",
			policy:  WithdrawalPolicy{RequireApproval: true, SingleExecution: true},
			request: pending,
			caller:  "bob",
			wantErr: errs.ErrNotRequestOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.CheckExecution(tt.request, tt.caller)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, EXECUTED, executed.State())
	require.NotNil(t, executed.ExecutedAt)
}

func TestRestoreExecution(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	r := NewWithdrawalRequest(1, "alice", 10, first)

	prev := r.MarkExecuted(first)
	assert.Equal(t, Execution{}, prev)

	again := r.MarkExecuted(second)
	assert.True(t, again.Executed)
	assert.Equal(t, first, *again.At)

	r.RestoreExecution(again)
	assert.Equal(t, EXECUTED, r.State())
	assert.Equal(t, first, *r.ExecutedAt)

	r.RestoreExecution(prev)
	assert.Equal(t, PENDING, r.State())
	assert.Nil(t, r.ExecutedAt)
}
