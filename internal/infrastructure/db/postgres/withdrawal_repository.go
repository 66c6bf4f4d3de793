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
	"github.com/jackc/pgerrcode"
	"github.com/shopspring/decimal"
)

type WithdrawalRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewWithdrawalRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*WithdrawalRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &WithdrawalRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.WithdrawalRepository = (*WithdrawalRepository)(nil)

func (r *WithdrawalRepository) CreateWithdrawalRequest(
	ctx context.Context,
	req *entities.WithdrawalRequest,
) (entities.RequestID, error) {
	const query = `
		INSERT INTO withdrawal_requests (account_id, requester, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id entities.RequestID

	err := r.getter.DefaultTrOrDB(ctx, r.db).
		QueryRowContext(ctx, query, req.AccountID, req.Requester, toNumeric(req.Amount), req.CreatedAt).
		Scan(&id)
	if err != nil {
		switch pgErrorCode(err) {
		case pgerrcode.ForeignKeyViolation:
			return 0, fmt.Errorf("account %d: %w", req.AccountID, errs.ErrNotFound)
		case pgerrcode.CheckViolation:
			return 0, errs.ErrZeroAmount
		}
		return 0, fmt.Errorf("insert withdrawal request: %w", err)
	}

	return id, nil
}

func (r *WithdrawalRepository) GetWithdrawalRequest(
	ctx context.Context,
	accountID entities.AccountID,
	requestID entities.RequestID,
) (*entities.WithdrawalRequest, error) {
	const (
		query = `
			SELECT id, account_id, requester, amount, approved, executed, created_at, executed_at
			FROM withdrawal_requests
			WHERE id = $1 AND account_id = $2
		`
		approvalsQuery = "SELECT approver FROM withdrawal_approvals WHERE request_id = $1 ORDER BY position"
	)

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	req := new(entities.WithdrawalRequest)

	var (
		amount     decimal.Decimal
		executedAt sql.NullTime
	)

	err := tr.QueryRowContext(ctx, query, requestID, accountID).Scan(
		&req.ID,
		&req.AccountID,
		&req.Requester,
		&amount,
		&req.Approved,
		&req.Executed,
		&req.CreatedAt,
		&executedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("withdrawal request %d of account %d: %w", requestID, accountID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get withdrawal request %d: %w", requestID, err)
	}

	if req.Amount, err = fromNumeric(amount); err != nil {
		return nil, err
	}
	if executedAt.Valid {
		req.ExecutedAt = &executedAt.Time
	}

	rows, err := tr.QueryContext(ctx, approvalsQuery, requestID)
	if err != nil {
		return nil, fmt.Errorf("get approvals of request %d: %w", requestID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	approvers := make([]entities.PartyID, 0, entities.MaxApprovals)
	for rows.Next() {
		var p entities.PartyID
		if err = rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan approver: %w", err)
		}
		approvers = append(approvers, p)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if req.Approvals, err = entities.NewApprovals(approvers...); err != nil {
		return nil, fmt.Errorf("stored approvals of request %d: %w", requestID, err)
	}

	return req, nil
}

// AddApproval stores the vote of approver together with the approved flag
// already computed on req.
func (r *WithdrawalRepository) AddApproval(
	ctx context.Context,
	req *entities.WithdrawalRequest,
	approver entities.PartyID,
	at time.Time,
) error {
	const (
		insertApproval = `
			INSERT INTO withdrawal_approvals (request_id, approver, position, approved_at)
			VALUES ($1, $2, $3, $4)
		`
		updateRequest = "UPDATE withdrawal_requests SET approved = $2 WHERE id = $1"
	)

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, insertApproval, req.ID, approver, req.Approvals.Len()-1, at)
	if err != nil {
		switch pgErrorCode(err) {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", errs.ErrAlreadyApproved, approver)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("withdrawal request %d: %w", req.ID, errs.ErrNotFound)
		}
		return fmt.Errorf("insert approval: %w", err)
	}

	if _, err = tr.ExecContext(ctx, updateRequest, req.ID, req.Approved); err != nil {
		return fmt.Errorf("update request %d: %w", req.ID, err)
	}

	return nil
}

func (r *WithdrawalRepository) SaveExecution(ctx context.Context, req *entities.WithdrawalRequest) error {
	const query = "UPDATE withdrawal_requests SET executed = $2, executed_at = $3 WHERE id = $1"

	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, req.ID, req.Executed, req.ExecutedAt)
	if err != nil {
		return fmt.Errorf("save execution of request %d: %w", req.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("withdrawal request %d: %w", req.ID, errs.ErrNotFound)
	}

	return nil
}
