package interfaces

import (
	"context"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
)

// NotificationService exposes the notifications of an account.
type NotificationService interface {
	GetEvents(ctx context.Context, caller entities.PartyID, id entities.AccountID) ([]*entities.Event, error)
}

// Publisher delivers a notification to the outside world.
type Publisher interface {
	Publish(context.Context, *entities.Event) error
}
