package postgres

import (
	"context"
	"io/fs"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpSection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a ();", want: "CREATE TABLE a ();"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a ();", want: "\nCREATE TABLE a ();"},
		{
			name:    "up and down",
			content: "-- +migrate Up\nCREATE TABLE a ();\n-- +migrate Down\nDROP TABLE a;",
			want:    "\nCREATE TABLE a ();\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, upSection(tt.content))
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := fs.ReadFile(migrations, migrationsDir+"/"+entries[0].Name())
	require.NoError(t, err)

	up := upSection(string(content))
	for _, table := range []string{
		"users", "accounts", "account_owners", "owner_account_counts",
		"withdrawal_requests", "withdrawal_approvals", "notifications",
	} {
		assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.NotContains(t, up, "DROP TABLE")
}

func TestNumeric(t *testing.T) {
	for _, a := range []entities.Amount{0, 1, 1050, math.MaxUint64} {
		got, err := fromNumeric(toNumeric(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := fromNumeric(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = fromNumeric(decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

// TestRepositories runs against a real database when TEST_DATABASE_URI is set.
func TestRepositories(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	ctx := context.Background()
	l, _ := logger.NewForTest()

	db, err := Connect(ctx, &config.Config{DSN: dsn}, l)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, l))
	// Applying twice is a no-op.
	require.NoError(t, Migrate(ctx, db, l))

	trm := manager.Must(trmsql.NewDefaultFactory(db))

	accounts, err := NewAccountRepository(db, trmsql.DefaultCtxGetter, l)
	require.NoError(t, err)
	withdrawals, err := NewWithdrawalRepository(db, trmsql.DefaultCtxGetter, l)
	require.NoError(t, err)
	events, err := NewEventRepository(db, trmsql.DefaultCtxGetter, l)
	require.NoError(t, err)
	users, err := NewUserRepository(db, trmsql.DefaultCtxGetter, l)
	require.NoError(t, err)

	// Unique parties keep reruns independent.
	suffix := strings.ReplaceAll(time.Now().Format("150405.000000000"), ".", "")
	alice := entities.PartyID("alice" + suffix)
	bob := entities.PartyID("bob" + suffix)

	_, err = users.CreateUser(ctx, string(alice), "hash")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, string(alice), "hash")
	assert.ErrorIs(t, err, errs.ErrDataConflict)

	u, err := users.GetUserByLogin(ctx, string(alice))
	require.NoError(t, err)
	assert.Equal(t, "hash", u.Password)

	owners, err := entities.NewOwners(alice, bob)
	require.NoError(t, err)

	var id entities.AccountID
	err = trm.Do(ctx, func(ctx context.Context) error {
		counts, err := accounts.GetOwnedAccountCountsForUpdate(ctx, owners.Slice())
		if err != nil {
			return err
		}
		assert.Equal(t, map[entities.PartyID]int{alice: 0, bob: 0}, counts)

		id, err = accounts.CreateAccount(ctx, entities.NewAccount(owners, time.Now().UTC()))
		if err != nil {
			return err
		}
		return accounts.IncrementOwnedAccountCounts(ctx, owners.Slice())
	})
	require.NoError(t, err)

	count, err := accounts.GetOwnedAccountCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, accounts.UpdateBalance(ctx, id, 1000))

	account, err := accounts.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.Amount(1000), account.Balance)
	assert.Equal(t, []entities.PartyID{alice, bob}, account.Owners.Slice())

	rid, err := withdrawals.CreateWithdrawalRequest(ctx,
		entities.NewWithdrawalRequest(id, alice, 300, time.Now().UTC()))
	require.NoError(t, err)

	r, err := withdrawals.GetWithdrawalRequest(ctx, id, rid)
	require.NoError(t, err)
	require.NoError(t, r.Approve(account.Owners, bob))
	require.NoError(t, withdrawals.AddApproval(ctx, r, bob, time.Now().UTC()))
	assert.ErrorIs(t, withdrawals.AddApproval(ctx, r, bob, time.Now().UTC()), errs.ErrAlreadyApproved)

	prev := r.MarkExecuted(time.Now().UTC())
	require.NoError(t, withdrawals.SaveExecution(ctx, r))

	r, err = withdrawals.GetWithdrawalRequest(ctx, id, rid)
	require.NoError(t, err)
	assert.True(t, r.Approved)
	assert.True(t, r.Executed)
	assert.NotNil(t, r.ExecutedAt)

	r.RestoreExecution(prev)
	require.NoError(t, withdrawals.SaveExecution(ctx, r))

	r, err = withdrawals.GetWithdrawalRequest(ctx, id, rid)
	require.NoError(t, err)
	assert.False(t, r.Executed)
	assert.Nil(t, r.ExecutedAt)

	_, err = withdrawals.GetWithdrawalRequest(ctx, id+1_000_000, rid)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	e, err := entities.NewEvent(entities.EventDeposit, id, entities.DepositPayload{AccountID: id, Amount: 1000}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, events.SaveEvent(ctx, e))
	require.NoError(t, events.MarkEventFailed(ctx, e.ID, "unreachable"))

	list, err := events.ListEventsByAccount(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.EventFailed, list[0].Status)
	assert.Equal(t, 1, list[0].Attempts)
	assert.JSONEq(t, string(e.Payload), string(list[0].Payload))

	require.NoError(t, events.MarkEventPublished(ctx, e.ID, time.Now().UTC()))
	list, err = events.ListEventsByAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.EventPublished, list[0].Status)
	assert.NotNil(t, list[0].PublishedAt)
}
