package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
)

type LedgerService struct {
	accountRepo repositories.AccountRepository
	eventRepo   repositories.EventRepository
	guard       *OwnershipGuard
	trm         trm.Manager
	logger      logger.Logger
	now         func() time.Time
}

func NewLedgerService(
	accountRepo repositories.AccountRepository,
	eventRepo repositories.EventRepository,
	guard *OwnershipGuard,
	trm trm.Manager,
	logger logger.Logger,
) (*LedgerService, error) {
	if accountRepo == nil {
		return nil, errors.New("nil dependency: account repository")
	}
	if eventRepo == nil {
		return nil, errors.New("nil dependency: event repository")
	}
	if guard == nil {
		return nil, errors.New("nil dependency: ownership guard")
	}
	if trm == nil {
		return nil, errors.New("nil dependency: transaction manager")
	}
	return &LedgerService{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		guard:       guard,
		trm:         trm,
		logger:      logger,
		now:         time.Now,
	}, nil
}

var _ interfaces.LedgerService = (*LedgerService)(nil)

// Deposit adds funds to an account owned by the caller.
func (s *LedgerService) Deposit(ctx context.Context, p *params.Deposit) error {
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		account, err := s.guard.Authorize(ctx, p.AccountID, p.Caller)
		if err != nil {
			return err
		}

		if err = account.Credit(p.Amount); err != nil {
			return err
		}

		if err = s.accountRepo.UpdateBalance(ctx, account.ID, account.Balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		now := s.now().UTC()

		return saveEvent(ctx, s.eventRepo, entities.EventDeposit, account.ID, entities.DepositPayload{
			Caller:    p.Caller,
			AccountID: account.ID,
			Amount:    p.Amount,
			Timestamp: now,
		}, now)
	})
	if err != nil {
		return err
	}

	s.logger.With(ctx, "account_id", p.AccountID, "caller", p.Caller).
		Infof("deposit of %d", p.Amount)

	return nil
}

// GetBalance is readable by anyone.
func (s *LedgerService) GetBalance(ctx context.Context, id entities.AccountID) (entities.Amount, error) {
	account, err := s.accountRepo.GetAccount(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get account %d: %w", id, err)
	}
	return account.Balance, nil
}
