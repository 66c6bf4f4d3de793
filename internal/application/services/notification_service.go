package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
)

// NotificationService relays outbox events to the publisher
// and lets owners read the history of their accounts.
type NotificationService struct {
	eventRepo repositories.EventRepository
	guard     *OwnershipGuard
	publisher interfaces.Publisher
	logger    logger.Logger
	config    *config.Config
	now       func() time.Time
	wg        *sync.WaitGroup
	done      chan struct{}
	stopOnce  sync.Once
}

func NewNotificationService(
	eventRepo repositories.EventRepository,
	guard *OwnershipGuard,
	publisher interfaces.Publisher,
	config *config.Config,
	logger logger.Logger,
) (*NotificationService, error) {
	if eventRepo == nil {
		return nil, errors.New("nil dependency: event repository")
	}
	if guard == nil {
		return nil, errors.New("nil dependency: ownership guard")
	}
	if publisher == nil {
		return nil, errors.New("nil dependency: publisher")
	}
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}
	return &NotificationService{
		eventRepo: eventRepo,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		config:    config,
		now:       time.Now,
		wg:        &sync.WaitGroup{},
		done:      make(chan struct{}),
	}, nil
}

var _ interfaces.NotificationService = (*NotificationService)(nil)

// GetEvents returns the notifications of an account the caller owns,
// oldest first.
func (s *NotificationService) GetEvents(ctx context.Context, caller entities.PartyID, id entities.AccountID) ([]*entities.Event, error) {
	if _, err := s.guard.AuthorizeRead(ctx, id, caller); err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListEventsByAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list events of account %d: %w", id, err)
	}
	return events, nil
}

// Run starts relaying pending events in the background until Stop.
func (s *NotificationService) Run() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop waits for the relay to finish its current batch.
func (s *NotificationService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})

	ready := make(chan struct{})
	go func() {
		defer close(ready)
		s.wg.Wait()
	}()

	select {
	case <-time.After(s.config.HTTPServer.ShutdownTimeout):
		s.logger.Error("notification service stop: shutdown timeout exceeded")
	case <-ready:
		return
	}
}

func (s *NotificationService) run() {
	ticker := time.NewTicker(s.config.Notifications.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := s.Relay(context.Background()); err != nil {
				s.logger.Errorf("relay notifications: %s", err)
			}
		}
	}
}

// Relay publishes one batch of pending events and returns how many
// were delivered. A failed delivery is recorded and retried on a later
// batch until the attempts run out.
func (s *NotificationService) Relay(ctx context.Context) (int, error) {
	events, err := s.eventRepo.ListPendingEvents(ctx,
		s.config.Notifications.BatchSize, s.config.Notifications.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}

	published := 0

	for _, event := range events {
		select {
		case <-s.done:
			return published, nil
		default:
		}

		if err = s.publisher.Publish(ctx, event); err != nil {
			s.logger.With(ctx, "event_id", event.ID, "type", event.Type).
				Warnf("publish failed on attempt %d: %s", event.Attempts+1, err)

			if err = s.eventRepo.MarkEventFailed(ctx, event.ID, err.Error()); err != nil {
				return published, fmt.Errorf("mark event %s failed: %w", event.ID, err)
			}
			continue
		}

		if err = s.eventRepo.MarkEventPublished(ctx, event.ID, s.now().UTC()); err != nil {
			return published, fmt.Errorf("mark event %s published: %w", event.ID, err)
		}
		published++
	}

	return published, nil
}
