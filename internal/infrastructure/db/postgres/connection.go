package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	sqldblogger "github.com/simukti/sqldb-logger"
)

// Connect opens the database, routes every query to the logger
// and checks connectivity.
func Connect(ctx context.Context, cfg *config.Config, logger logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}

	// Log every query to the database.
	db = sqldblogger.OpenDriver(cfg.DSN, db.Driver(), logger,
		sqldblogger.WithMinimumLevel(sqldblogger.LevelDebug),
		sqldblogger.WithSQLQueryAsMessage(true),
	)

	// Check connectivity and DSN correctness.
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	return db, nil
}

// Money columns are NUMERIC(20, 0) of minor units.
var minorUnits entities.Currency

func toNumeric(a entities.Amount) decimal.Decimal {
	return minorUnits.Decimal(a)
}

func fromNumeric(d decimal.Decimal) (entities.Amount, error) {
	a, err := minorUnits.FromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("stored amount %s: %w", d, err)
	}
	return a, nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.UniqueViolation
}
