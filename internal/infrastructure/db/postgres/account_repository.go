package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/jackc/pgerrcode"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewAccountRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*AccountRepository, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &AccountRepository{db: db, getter: getter, logger: logger}, nil
}

var _ repositories.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) CreateAccount(ctx context.Context, account *entities.Account) (entities.AccountID, error) {
	const (
		insertAccount = "INSERT INTO accounts (balance, created_at) VALUES ($1, $2) RETURNING id"
		insertOwner   = "INSERT INTO account_owners (account_id, party, position) VALUES ($1, $2, $3)"
	)

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var id entities.AccountID

	err := tr.QueryRowContext(ctx, insertAccount, toNumeric(account.Balance), account.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}

	for i, party := range account.Owners.Slice() {
		if _, err = tr.ExecContext(ctx, insertOwner, id, party, i); err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("%w: owner %s", errs.ErrDuplicateOwner, party)
			}
			return 0, fmt.Errorf("insert owner %s: %w", party, err)
		}
	}

	return id, nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, id entities.AccountID) (*entities.Account, error) {
	const query = "SELECT id, balance, created_at FROM accounts WHERE id = $1"
	return r.getAccount(ctx, query, id)
}

func (r *AccountRepository) GetAccountForUpdate(ctx context.Context, id entities.AccountID) (*entities.Account, error) {
	const query = "SELECT id, balance, created_at FROM accounts WHERE id = $1 FOR UPDATE"
	return r.getAccount(ctx, query, id)
}

func (r *AccountRepository) getAccount(ctx context.Context, query string, id entities.AccountID) (*entities.Account, error) {
	const ownersQuery = "SELECT party FROM account_owners WHERE account_id = $1 ORDER BY position"

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	account := new(entities.Account)

	var balance decimal.Decimal

	err := tr.QueryRowContext(ctx, query, id).Scan(&account.ID, &balance, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}

	if account.Balance, err = fromNumeric(balance); err != nil {
		return nil, err
	}

	rows, err := tr.QueryContext(ctx, ownersQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get owners of account %d: %w", id, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	parties := make([]entities.PartyID, 0, entities.MaxOwners)
	for rows.Next() {
		var p entities.PartyID
		if err = rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		parties = append(parties, p)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(parties) == 0 {
		return nil, fmt.Errorf("account %d has no owners", id)
	}

	if account.Owners, err = entities.NewOwners(parties[0], parties[1:]...); err != nil {
		return nil, fmt.Errorf("stored owners of account %d: %w", id, err)
	}

	return account, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id entities.AccountID, balance entities.Amount) error {
	const query = "UPDATE accounts SET balance = $2 WHERE id = $1"

	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, id, toNumeric(balance))
	if err != nil {
		if pgErrorCode(err) == pgerrcode.CheckViolation {
			return fmt.Errorf("%w: account %d", errs.ErrInsufficientFunds, id)
		}
		return fmt.Errorf("update balance of account %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, errs.ErrNotFound)
	}

	return nil
}

func (r *AccountRepository) GetOwnedAccountCount(ctx context.Context, party entities.PartyID) (int, error) {
	const query = "SELECT count FROM owner_account_counts WHERE party = $1"

	var count int

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, party).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get owned account count of %s: %w", party, err)
	}

	return count, nil
}

// GetOwnedAccountCountsForUpdate creates missing counters and locks all of
// them. Rows are locked in party order so that concurrent calls over
// overlapping parties cannot deadlock.
func (r *AccountRepository) GetOwnedAccountCountsForUpdate(
	ctx context.Context,
	parties []entities.PartyID,
) (map[entities.PartyID]int, error) {
	const query = `
		INSERT INTO owner_account_counts (party) VALUES ($1)
		ON CONFLICT (party) DO UPDATE SET party = EXCLUDED.party
		RETURNING count
	`

	sorted := append([]entities.PartyID(nil), parties...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	counts := make(map[entities.PartyID]int, len(sorted))

	for _, p := range sorted {
		if _, ok := counts[p]; ok {
			continue
		}

		var count int
		if err := tr.QueryRowContext(ctx, query, p).Scan(&count); err != nil {
			return nil, fmt.Errorf("lock owned account count of %s: %w", p, err)
		}
		counts[p] = count
	}

	return counts, nil
}

func (r *AccountRepository) IncrementOwnedAccountCounts(ctx context.Context, parties []entities.PartyID) error {
	const query = `
		INSERT INTO owner_account_counts (party, count) VALUES ($1, 1)
		ON CONFLICT (party) DO UPDATE SET count = owner_account_counts.count + 1
	`

	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	for _, p := range parties {
		if _, err := tr.ExecContext(ctx, query, p); err != nil {
			if pgErrorCode(err) == pgerrcode.CheckViolation {
				return fmt.Errorf("%w: %s", errs.ErrOwnerAccountLimitExceeded, p)
			}
			return fmt.Errorf("increment owned account count of %s: %w", p, err)
		}
	}

	return nil
}
