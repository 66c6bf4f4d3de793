package response

import (
	"encoding/json"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/google/uuid"
)

type Event struct {
	CreatedAt   time.Time            `json:"created_at"`
	PublishedAt *time.Time           `json:"published_at,omitempty"`
	Type        entities.EventType   `json:"type"`
	Status      entities.EventStatus `json:"status"`
	Payload     json.RawMessage      `json:"payload"`
	Attempts    int                  `json:"attempts"`
	AccountID   entities.AccountID   `json:"account_id"`
	ID          uuid.UUID            `json:"id"`
}

func NewEvents(events []*entities.Event) []Event {
	res := make([]Event, len(events))
	for i, e := range events {
		res[i] = Event{
			ID:          e.ID,
			Type:        e.Type,
			AccountID:   e.AccountID,
			Payload:     e.Payload,
			Status:      e.Status,
			Attempts:    e.Attempts,
			CreatedAt:   e.CreatedAt,
			PublishedAt: e.PublishedAt,
		}
	}
	return res
}
