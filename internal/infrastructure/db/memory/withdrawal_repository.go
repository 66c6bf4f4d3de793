package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
)

type WithdrawalRepository struct {
	store *Store
}

func NewWithdrawalRepository(store *Store) (*WithdrawalRepository, error) {
	if store == nil {
		return nil, errors.New("nil dependency: store")
	}
	return &WithdrawalRepository{store: store}, nil
}

var _ repositories.WithdrawalRepository = (*WithdrawalRepository)(nil)

func (r *WithdrawalRepository) CreateWithdrawalRequest(
	ctx context.Context,
	req *entities.WithdrawalRequest,
) (entities.RequestID, error) {
	var id entities.RequestID

	err := r.store.run(ctx, func(t *tx) error {
		if _, ok := t.account(req.AccountID); !ok {
			return fmt.Errorf("account %d: %w", req.AccountID, errs.ErrNotFound)
		}

		id = t.nextRequestID()
		if err := t.lock(ctx, requestKey(id)); err != nil {
			return err
		}

		stored := *req
		stored.ID = id
		t.requests[id] = stored
		return nil
	})

	return id, err
}

// GetWithdrawalRequest reports requests of other accounts as not found.
func (r *WithdrawalRepository) GetWithdrawalRequest(
	ctx context.Context,
	accountID entities.AccountID,
	requestID entities.RequestID,
) (*entities.WithdrawalRequest, error) {
	var req entities.WithdrawalRequest

	err := r.store.run(ctx, func(t *tx) error {
		stored, ok := t.request(requestID)
		if !ok || stored.AccountID != accountID {
			return fmt.Errorf("withdrawal request %d of account %d: %w", requestID, accountID, errs.ErrNotFound)
		}
		req = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// AddApproval stores the approvals and approved flag already applied to req.
func (r *WithdrawalRepository) AddApproval(
	ctx context.Context,
	req *entities.WithdrawalRequest,
	approver entities.PartyID,
	_ time.Time,
) error {
	return r.modify(ctx, req.ID, func(stored *entities.WithdrawalRequest) error {
		if stored.Approvals.Contains(approver) {
			return fmt.Errorf("%w: %s", errs.ErrAlreadyApproved, approver)
		}
		stored.Approvals = req.Approvals
		stored.Approved = req.Approved
		return nil
	})
}

// SaveExecution stores the executed flag and time of req as they are.
func (r *WithdrawalRepository) SaveExecution(ctx context.Context, req *entities.WithdrawalRequest) error {
	return r.modify(ctx, req.ID, func(stored *entities.WithdrawalRequest) error {
		stored.Executed = req.Executed
		stored.ExecutedAt = req.ExecutedAt
		return nil
	})
}

func (r *WithdrawalRepository) modify(
	ctx context.Context,
	id entities.RequestID,
	fn func(*entities.WithdrawalRequest) error,
) error {
	return r.store.run(ctx, func(t *tx) error {
		if err := t.lock(ctx, requestKey(id)); err != nil {
			return err
		}
		stored, ok := t.request(id)
		if !ok {
			return fmt.Errorf("withdrawal request %d: %w", id, errs.ErrNotFound)
		}
		if err := fn(&stored); err != nil {
			return err
		}
		t.requests[id] = stored
		return nil
	})
}
