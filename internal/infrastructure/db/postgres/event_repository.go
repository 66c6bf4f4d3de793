package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/google/uuid"
)

const eventColumns = "id, type, account_id, payload, status, attempts, last_error, created_at, published_at"

type EventRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewEventRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*EventRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &EventRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) SaveEvent(ctx context.Context, e *entities.Event) error {
	const query = `
		INSERT INTO notifications (id, type, account_id, payload, status, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.Type, e.AccountID, string(e.Payload), e.Status, e.Attempts, e.LastError, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", e.ID, errs.ErrDataConflict)
		}
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

func (r *EventRepository) ListPendingEvents(ctx context.Context, limit, maxAttempts int) ([]*entities.Event, error) {
	const query = "SELECT " + eventColumns + `
		FROM notifications
		WHERE status <> 'PUBLISHED' AND attempts < $2
		ORDER BY seq
		LIMIT $1
	`
	return r.list(ctx, query, limit, maxAttempts)
}

func (r *EventRepository) ListEventsByAccount(ctx context.Context, id entities.AccountID) ([]*entities.Event, error) {
	const query = "SELECT " + eventColumns + " FROM notifications WHERE account_id = $1 ORDER BY seq"
	return r.list(ctx, query, id)
}

func (r *EventRepository) MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `
		UPDATE notifications SET status = 'PUBLISHED', published_at = $2, last_error = ''
		WHERE id = $1
	`
	return r.update(ctx, query, id, at)
}

func (r *EventRepository) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const query = `
		UPDATE notifications SET status = 'FAILED', attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`
	return r.update(ctx, query, id, reason)
}

func (r *EventRepository) update(ctx context.Context, query string, id uuid.UUID, arg any) error {
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("update event %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, errs.ErrNotFound)
	}

	return nil
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Event, error) {
	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	events := make([]*entities.Event, 0)

	for rows.Next() {
		var (
			e           = new(entities.Event)
			payload     []byte
			publishedAt sql.NullTime
		)

		err = rows.Scan(
			&e.ID,
			&e.Type,
			&e.AccountID,
			&payload,
			&e.Status,
			&e.Attempts,
			&e.LastError,
			&e.CreatedAt,
			&publishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.Payload = payload
		if publishedAt.Valid {
			e.PublishedAt = &publishedAt.Time
		}

		events = append(events, e)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
