package payroll

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"hrpay/internal/platform/db"
)

const uniqueViolation = "23505"

type Store struct {
	DB db.DBTX
}

func NewStore(conn db.DBTX) *Store {
	return &Store{DB: conn}
}

type scanner interface {
	Scan(dest ...any) error
}

// Numeric columns are selected as text so amounts never pass through float64.
func parseAmount(column, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", column, err)
	}
	return value, nil
}

func parseOptionalAmount(column string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseAmount(column, *raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalAmountArg(value *decimal.Decimal) any {
	if value == nil {
		return nil
	}
	return value.String()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
