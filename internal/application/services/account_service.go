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
)

type AccountService struct {
	accountRepo repositories.AccountRepository
	eventRepo   repositories.EventRepository
	guard       *OwnershipGuard
	trm         trm.Manager
	logger      logger.Logger
	now         func() time.Time
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	eventRepo repositories.EventRepository,
	guard *OwnershipGuard,
	trm trm.Manager,
	logger logger.Logger,
) (*AccountService, error) {
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
	return &AccountService{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		guard:       guard,
		trm:         trm,
		logger:      logger,
		now:         time.Now,
	}, nil
}

var _ interfaces.AccountService = (*AccountService)(nil)

// CreateAccount opens an empty account owned by the caller and the other owners.
// Nothing is written unless every ownership limit holds.
func (s *AccountService) CreateAccount(ctx context.Context, p *params.CreateAccount) (entities.AccountID, error) {
	if len(p.OtherOwners) >= entities.MaxOwners {
		return 0, errs.ErrTooManyOwners
	}

	var id entities.AccountID

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		// Lock counters of every listed party until commit.
		parties := make([]entities.PartyID, 0, len(p.OtherOwners)+1)
		parties = append(parties, p.Caller)
		parties = append(parties, p.OtherOwners...)

		counts, err := s.accountRepo.GetOwnedAccountCountsForUpdate(ctx, parties)
		if err != nil {
			return fmt.Errorf("get owned account counts: %w", err)
		}

		if counts[p.Caller] >= entities.MaxOwnedAccounts {
			return fmt.Errorf("%w: %s owns %d accounts",
				errs.ErrOwnerAccountLimitExceeded, p.Caller, counts[p.Caller])
		}

		owners, err := entities.NewOwners(p.Caller, p.OtherOwners...)
		if err != nil {
			return err
		}

		for _, o := range p.OtherOwners {
			if counts[o] >= entities.MaxOwnedAccounts {
				return fmt.Errorf("%w: %s owns %d accounts",
					errs.ErrCoOwnerAccountLimitExceeded, o, counts[o])
			}
		}

		now := s.now().UTC()

		id, err = s.accountRepo.CreateAccount(ctx, entities.NewAccount(owners, now))
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		if err = s.accountRepo.IncrementOwnedAccountCounts(ctx, owners.Slice()); err != nil {
			return fmt.Errorf("increment owned account counts: %w", err)
		}

		return saveEvent(ctx, s.eventRepo, entities.EventAccountCreated, id, entities.AccountCreatedPayload{
			Caller:    p.Caller,
			AccountID: id,
			Owners:    owners,
			Timestamp: now,
		}, now)
	})
	if err != nil {
		return 0, err
	}

	s.logger.With(ctx, "account_id", id, "caller", p.Caller).
		Infof("account created with %d co-owners", len(p.OtherOwners))

	return id, nil
}

// GetOwnedAccountCount returns how many accounts the party co-owns.
func (s *AccountService) GetOwnedAccountCount(ctx context.Context, party entities.PartyID) (int, error) {
	count, err := s.accountRepo.GetOwnedAccountCount(ctx, party)
	if err != nil {
		return 0, fmt.Errorf("get owned account count: %w", err)
	}
	return count, nil
}

// GetAccount returns the account if the caller owns it.
func (s *AccountService) GetAccount(ctx context.Context, caller entities.PartyID, id entities.AccountID) (*entities.Account, error) {
	return s.guard.AuthorizeRead(ctx, id, caller)
}

// saveEvent appends a notification to the outbox of the running transaction.
func saveEvent(
	ctx context.Context,
	repo repositories.EventRepository,
	typ entities.EventType,
	id entities.AccountID,
	payload any,
	now time.Time,
) error {
	event, err := entities.NewEvent(typ, id, payload, now)
	if err != nil {
		return err
	}
	if err = repo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save %s event: %w", typ, err)
	}
	return nil
}
