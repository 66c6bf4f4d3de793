// Package payout hands released funds to the external payout system.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/application/params"
	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/pkg/limiter"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
)

const defaultRetryAfter = time.Minute

// transferRequest is the body accepted by POST /api/payouts.
type transferRequest struct {
	AccountID entities.AccountID `json:"account_id"`
	RequestID entities.RequestID `json:"request_id"`
	Recipient entities.PartyID   `json:"recipient"`
	Amount    string             `json:"amount"`
}

// Client transfers funds over HTTP.
type Client struct {
	address  string
	currency entities.Currency
	client   *http.Client
	limiter  *limiter.Limiter
	logger   logger.Logger
}

func NewClient(config *config.Config, logger logger.Logger) (*Client, error) {
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}
	if config.Payout.Address == "" {
		return nil, errors.New("payout system address is not set")
	}
	return &Client{
		address:  config.Payout.Address,
		currency: entities.Currency{Exponent: config.Currency.Exponent},
		client:   &http.Client{Timeout: config.Payout.Timeout},
		limiter:  limiter.New(config.Payout.RateInterval, config.Payout.Burst),
		logger:   logger,
	}, nil
}

var _ interfaces.Transferer = (*Client)(nil)

// Transfer posts the transfer once. The reference is sent as the
// idempotency key so that the payout system can drop repeats.
func (c *Client) Transfer(ctx context.Context, p *params.Transfer) error {
	body, err := json.Marshal(transferRequest{
		AccountID: p.AccountID,
		RequestID: p.RequestID,
		Recipient: p.Recipient,
		Amount:    c.currency.Format(p.Amount),
	})
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}

	if err = c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.address+"/api/payouts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", p.Reference.String())

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post transfer: %w", err)
	}
	defer res.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		if s, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && s > 0 {
			retryAfter = time.Duration(s) * time.Second
		}
		c.limiter.Pause(retryAfter)
		c.logger.With(ctx, "reference", p.Reference).
			Warnf("payout system asked to slow down for %s", retryAfter)
		return fmt.Errorf("%w: payout system", errs.ErrRateLimit)

	case res.StatusCode < 200 || res.StatusCode > 299:
		return fmt.Errorf("payout system responded with %d", res.StatusCode)
	}

	c.logger.With(ctx, "reference", p.Reference, "request_id", p.RequestID).
		Debugf("transferred %s to %s", c.currency.Format(p.Amount), p.Recipient)

	return nil
}

// Noop accepts every transfer without calling out. It is used when
// no payout system is configured.
type Noop struct {
	logger logger.Logger
}

func NewNoop(logger logger.Logger) *Noop {
	return &Noop{logger: logger}
}

var _ interfaces.Transferer = (*Noop)(nil)

func (n *Noop) Transfer(ctx context.Context, p *params.Transfer) error {
	n.logger.With(ctx, "reference", p.Reference, "request_id", p.RequestID).
		Infof("released %d to %s", p.Amount, p.Recipient)
	return nil
}
