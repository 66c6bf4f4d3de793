package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification about a committed state change.
type EventType string

const (
	// EventAccountCreated announces a new account.
	EventAccountCreated EventType = "account.created"
	// EventDeposit announces funds added to an account.
	EventDeposit EventType = "account.deposit"
	// EventWithdrawalRequest announces a new withdrawal request.
	EventWithdrawalRequest EventType = "withdrawal.requested"
	// EventRequestApproval announces a co-owner approval.
	EventRequestApproval EventType = "withdrawal.approval"
	// EventWithdraw announces funds released to the requester.
	EventWithdraw EventType = "withdrawal.executed"
)

// EventStatus is the delivery state of a notification.
type EventStatus string

const (
	EventPending   EventStatus = "PENDING"
	EventPublished EventStatus = "PUBLISHED"
	EventFailed    EventStatus = "FAILED"
)

// Event is a notification stored in the outbox in the same transaction
// as the state change it describes.
type Event struct {
	ID          uuid.UUID
	Type        EventType
	AccountID   AccountID
	Payload     json.RawMessage
	Status      EventStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewEvent marshals payload and returns a pending event.
func NewEvent(typ EventType, accountID AccountID, payload any, now time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      typ,
		AccountID: accountID,
		Payload:   data,
		Status:    EventPending,
		CreatedAt: now,
	}, nil
}

type AccountCreatedPayload struct {
	Caller    PartyID   `json:"caller"`
	AccountID AccountID `json:"account_id"`
	Owners    Owners    `json:"owners"`
	Timestamp time.Time `json:"timestamp"`
}

type DepositPayload struct {
	Caller    PartyID   `json:"caller"`
	AccountID AccountID `json:"account_id"`
	Amount    Amount    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type WithdrawalRequestPayload struct {
	Caller    PartyID   `json:"caller"`
	AccountID AccountID `json:"account_id"`
	RequestID RequestID `json:"request_id"`
	Amount    Amount    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type RequestApprovalPayload struct {
	Caller    PartyID   `json:"caller"`
	AccountID AccountID `json:"account_id"`
	RequestID RequestID `json:"request_id"`
	Approved  bool      `json:"approved"`
	Timestamp time.Time `json:"timestamp"`
}

type WithdrawPayload struct {
	Caller    PartyID   `json:"caller"`
	AccountID AccountID `json:"account_id"`
	RequestID RequestID `json:"request_id"`
	Amount    Amount    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
