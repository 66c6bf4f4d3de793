package repositories

import (
	"context"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/google/uuid"
)

// EventRepository is the notification outbox.
type EventRepository interface {
	SaveEvent(context.Context, *entities.Event) error
	ListPendingEvents(ctx context.Context, limit, maxAttempts int) ([]*entities.Event, error)
	MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListEventsByAccount(context.Context, entities.AccountID) ([]*entities.Event, error)
}
