package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/google/uuid"
)

type EventRepository struct {
	store *Store
}

func NewEventRepository(store *Store) (*EventRepository, error) {
	if store == nil {
		return nil, errors.New("nil dependency: store")
	}
	return &EventRepository{store: store}, nil
}

var _ repositories.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) SaveEvent(ctx context.Context, event *entities.Event) error {
	return r.store.run(ctx, func(t *tx) error {
		if err := t.lock(ctx, eventKey(event.ID)); err != nil {
			return err
		}
		if _, ok := t.event(event.ID); ok {
			return fmt.Errorf("event %s: %w", event.ID, errs.ErrDataConflict)
		}
		t.inserted = append(t.inserted, *event)
		return nil
	})
}

// ListPendingEvents walks the unpublished backlog only.
func (r *EventRepository) ListPendingEvents(ctx context.Context, limit, maxAttempts int) ([]*entities.Event, error) {
	events := make([]*entities.Event, 0)

	err := r.store.run(ctx, func(t *tx) error {
		for _, e := range t.pending() {
			e := e // go 1.21 reuses the range variable; copy before taking its address
			if len(events) == limit {
				break
			}
			if e.Status == entities.EventPublished || e.Attempts >= maxAttempts {
				continue
			}
			events = append(events, &e)
		}
		return nil
	})

	return events, err
}

func (r *EventRepository) MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, func(e *entities.Event) {
		e.Status = entities.EventPublished
		e.PublishedAt = &at
		e.LastError = ""
	})
}

func (r *EventRepository) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, id, func(e *entities.Event) {
		e.Status = entities.EventFailed
		e.Attempts++
		e.LastError = reason
	})
}

func (r *EventRepository) ListEventsByAccount(ctx context.Context, id entities.AccountID) ([]*entities.Event, error) {
	events := make([]*entities.Event, 0)

	err := r.store.run(ctx, func(t *tx) error {
		for _, e := range t.eventsOf(id) {
			e := e // go 1.21 reuses the range variable; copy before taking its address
			events = append(events, &e)
		}
		return nil
	})

	return events, err
}

func (r *EventRepository) update(ctx context.Context, id uuid.UUID, fn func(*entities.Event)) error {
	return r.store.run(ctx, func(t *tx) error {
		if err := t.lock(ctx, eventKey(id)); err != nil {
			return err
		}
		for i := range t.inserted {
			if t.inserted[i].ID == id {
				fn(&t.inserted[i])
				return nil
			}
		}
		e, ok := t.event(id)
		if !ok {
			return fmt.Errorf("event %s: %w", id, errs.ErrNotFound)
		}
		fn(&e)
		t.updated[id] = e
		return nil
	})
}
