package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
)

type WithdrawalService struct {
	accountRepo    repositories.AccountRepository
	withdrawalRepo repositories.WithdrawalRepository
	eventRepo      repositories.EventRepository
	guard          *OwnershipGuard
	transferer     interfaces.Transferer
	policy         entities.WithdrawalPolicy
	trm            trm.Manager
	logger         logger.Logger
	now            func() time.Time
}

func NewWithdrawalService(
	accountRepo repositories.AccountRepository,
	withdrawalRepo repositories.WithdrawalRepository,
	eventRepo repositories.EventRepository,
	guard *OwnershipGuard,
	transferer interfaces.Transferer,
	policy entities.WithdrawalPolicy,
	trm trm.Manager,
	logger logger.Logger,
) (*WithdrawalService, error) {
	if accountRepo == nil {
		return nil, errors.New("nil dependency: account repository")
	}
	if withdrawalRepo == nil {
		return nil, errors.New("nil dependency: withdrawal repository")
	}
	if eventRepo == nil {
		return nil, errors.New("nil dependency: event repository")
	}
	if guard == nil {
		return nil, errors.New("nil dependency: ownership guard")
	}
	if transferer == nil {
		return nil, errors.New("nil dependency: transferer")
	}
	if trm == nil {
		return nil, errors.New("nil dependency: transaction manager")
	}
	return &WithdrawalService{
		accountRepo:    accountRepo,
		withdrawalRepo: withdrawalRepo,
		eventRepo:      eventRepo,
		guard:          guard,
		transferer:     transferer,
		policy:         policy,
		trm:            trm,
		logger:         logger,
		now:            time.Now,
	}, nil
}

var _ interfaces.WithdrawalService = (*WithdrawalService)(nil)

// RequestWithdrawal records the caller's intent to withdraw. The balance is
// checked but not reserved.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, p *params.RequestWithdrawal) (entities.RequestID, error) {
	var id entities.RequestID

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		account, err := s.guard.Authorize(ctx, p.AccountID, p.Caller)
		if err != nil {
			return err
		}

		if p.Amount.IsZero() {
			return errs.ErrZeroAmount
		}
		if account.Balance < p.Amount {
			return fmt.Errorf("%w: balance %d, requested %d",
				errs.ErrInsufficientBalance, account.Balance, p.Amount)
		}

		now := s.now().UTC()

		id, err = s.withdrawalRepo.CreateWithdrawalRequest(ctx,
			entities.NewWithdrawalRequest(account.ID, p.Caller, p.Amount, now))
		if err != nil {
			return fmt.Errorf("create withdrawal request: %w", err)
		}

		return saveEvent(ctx, s.eventRepo, entities.EventWithdrawalRequest, account.ID, entities.WithdrawalRequestPayload{
			Caller:    p.Caller,
			AccountID: account.ID,
			RequestID: id,
			Amount:    p.Amount,
			Timestamp: now,
		}, now)
	})
	if err != nil {
		return 0, err
	}

	s.logger.With(ctx, "account_id", p.AccountID, "request_id", id, "caller", p.Caller).
		Infof("withdrawal of %d requested", p.Amount)

	return id, nil
}

// ApproveWithdrawal counts the caller's approval and reports whether
// the request is fully approved afterwards.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, p *params.ApproveWithdrawal) (bool, error) {
	var approved bool

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		account, err := s.guard.Authorize(ctx, p.AccountID, p.Caller)
		if err != nil {
			return err
		}

		r, err := s.withdrawalRepo.GetWithdrawalRequest(ctx, account.ID, p.RequestID)
		if err != nil {
			return fmt.Errorf("get withdrawal request %d: %w", p.RequestID, err)
		}

		if err = r.Approve(account.Owners, p.Caller); err != nil {
			return err
		}

		now := s.now().UTC()

		if err = s.withdrawalRepo.AddApproval(ctx, r, p.Caller, now); err != nil {
			return fmt.Errorf("add approval: %w", err)
		}
		approved = r.Approved

		return saveEvent(ctx, s.eventRepo, entities.EventRequestApproval, account.ID, entities.RequestApprovalPayload{
			Caller:    p.Caller,
			AccountID: account.ID,
			RequestID: r.ID,
			Approved:  r.Approved,
			Timestamp: now,
		}, now)
	})
	if err != nil {
		return false, err
	}

	s.logger.With(ctx, "account_id", p.AccountID, "request_id", p.RequestID, "caller", p.Caller).
		Infof("withdrawal approved by caller, fully approved: %t", approved)

	return approved, nil
}

// Withdraw debits the account and hands the funds to the requester.
//
// The debit is committed before the payout starts, so no transaction or
// row lock is held while the transferer runs. A failed payout is undone by
// a compensating credit. Once the debit is committed the caller's
// cancellation no longer applies.
func (s *WithdrawalService) Withdraw(ctx context.Context, p *params.Withdraw) error {
	w, err := s.reserve(ctx, p)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	log := s.logger.With(ctx, "account_id", p.AccountID, "request_id", p.RequestID, "caller", p.Caller)

	if err = s.transferer.Transfer(ctx, w.transfer); err != nil {
		err = fmt.Errorf("%w: %w", errs.ErrTransferFailed, err)
		if rerr := s.release(ctx, w); rerr != nil {
			// The account stays debited without a payout.
			log.Errorf("withdrawal not rolled back: %s: %s", err, rerr)
			return errors.Join(err, rerr)
		}
		log.Errorf("withdrawal rolled back: %s", err)
		return err
	}

	if err = s.confirm(ctx, p.Caller, w); err != nil {
		// The funds are gone, only the notification is missing.
		log.Errorf("withdrawal executed without notification: %s", err)
		return nil
	}

	log.Info("withdrawal executed")

	return nil
}

// withdrawal is a committed debit waiting for its payout.
type withdrawal struct {
	transfer   *params.Transfer
	executedAt time.Time
	prev       entities.Execution
}

// reserve checks the request, debits the account and marks the request
// executed in one transaction.
func (s *WithdrawalService) reserve(ctx context.Context, p *params.Withdraw) (*withdrawal, error) {
	var w *withdrawal

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		account, err := s.guard.Authorize(ctx, p.AccountID, p.Caller)
		if err != nil {
			return err
		}

		r, err := s.withdrawalRepo.GetWithdrawalRequest(ctx, account.ID, p.RequestID)
		if err != nil {
			return fmt.Errorf("get withdrawal request %d: %w", p.RequestID, err)
		}

		if err = s.policy.CheckExecution(r, p.Caller); err != nil {
			return err
		}

		if err = account.Debit(r.Amount); err != nil {
			return fmt.Errorf("%w: balance %d, requested %d", err, account.Balance, r.Amount)
		}

		if err = s.accountRepo.UpdateBalance(ctx, account.ID, account.Balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		now := s.now().UTC()
		prev := r.MarkExecuted(now)

		if err = s.withdrawalRepo.SaveExecution(ctx, r); err != nil {
			return fmt.Errorf("mark executed: %w", err)
		}

		w = &withdrawal{
			transfer: &params.Transfer{
				Reference: uuid.New(),
				AccountID: account.ID,
				RequestID: r.ID,
				Recipient: r.Requester,
				Amount:    r.Amount,
			},
			executedAt: now,
			prev:       prev,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

// release credits a reserved amount back. The request returns to its
// previous execution state unless a later execution replaced ours.
func (s *WithdrawalService) release(ctx context.Context, w *withdrawal) error {
	return s.trm.Do(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetAccountForUpdate(ctx, w.transfer.AccountID)
		if err != nil {
			return fmt.Errorf("get account %d: %w", w.transfer.AccountID, err)
		}

		if err = account.Credit(w.transfer.Amount); err != nil {
			return err
		}

		if err = s.accountRepo.UpdateBalance(ctx, account.ID, account.Balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		r, err := s.withdrawalRepo.GetWithdrawalRequest(ctx, account.ID, w.transfer.RequestID)
		if err != nil {
			return fmt.Errorf("get withdrawal request %d: %w", w.transfer.RequestID, err)
		}

		if r.ExecutedAt == nil || !r.ExecutedAt.Equal(w.executedAt) {
			return nil
		}

		r.RestoreExecution(w.prev)

		if err = s.withdrawalRepo.SaveExecution(ctx, r); err != nil {
			return fmt.Errorf("restore execution: %w", err)
		}

		return nil
	})
}

// confirm records the Withdraw event under the transfer reference.
func (s *WithdrawalService) confirm(ctx context.Context, caller entities.PartyID, w *withdrawal) error {
	event, err := entities.NewEvent(entities.EventWithdraw, w.transfer.AccountID, entities.WithdrawPayload{
		Caller:    caller,
		AccountID: w.transfer.AccountID,
		RequestID: w.transfer.RequestID,
		Amount:    w.transfer.Amount,
		Timestamp: w.executedAt,
	}, w.executedAt)
	if err != nil {
		return err
	}
	event.ID = w.transfer.Reference

	if err = s.eventRepo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save %s event: %w", event.Type, err)
	}

	return nil
}

// GetWithdrawalRequest returns a request of an account the caller owns.
func (s *WithdrawalService) GetWithdrawalRequest(
	ctx context.Context,
	caller entities.PartyID,
	accountID entities.AccountID,
	requestID entities.RequestID,
) (*entities.WithdrawalRequest, error) {
	if _, err := s.guard.AuthorizeRead(ctx, accountID, caller); err != nil {
		return nil, err
	}

	r, err := s.withdrawalRepo.GetWithdrawalRequest(ctx, accountID, requestID)
	if err != nil {
		return nil, fmt.Errorf("get withdrawal request %d: %w", requestID, err)
	}
	return r, nil
}
