// Package notify delivers account notifications to their audience.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/google/uuid"
)

// message is the wire form of a notification.
type message struct {
	ID        uuid.UUID          `json:"id"`
	Type      entities.EventType `json:"type"`
	AccountID entities.AccountID `json:"account_id"`
	Payload   json.RawMessage    `json:"payload"`
	CreatedAt time.Time          `json:"created_at"`
}

func newMessage(e *entities.Event) message {
	return message{
		ID:        e.ID,
		Type:      e.Type,
		AccountID: e.AccountID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

// LogPublisher writes every notification to the log.
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(logger logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

var _ interfaces.Publisher = (*LogPublisher)(nil)

func (p *LogPublisher) Publish(ctx context.Context, e *entities.Event) error {
	p.logger.With(ctx,
		"event_id", e.ID,
		"account_id", e.AccountID,
		"payload", string(e.Payload),
	).Info(string(e.Type))
	return nil
}

// WebhookPublisher posts every notification as JSON to a URL.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

func NewWebhookPublisher(url string, timeout time.Duration) (*WebhookPublisher, error) {
	if url == "" {
		return nil, errors.New("webhook url is not set")
	}
	return &WebhookPublisher{url: url, client: &http.Client{Timeout: timeout}}, nil
}

var _ interfaces.Publisher = (*WebhookPublisher)(nil)

func (p *WebhookPublisher) Publish(ctx context.Context, e *entities.Event) error {
	body, err := json.Marshal(newMessage(e))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(e.Type))

	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("webhook responded with %d", res.StatusCode)
	}

	return nil
}
