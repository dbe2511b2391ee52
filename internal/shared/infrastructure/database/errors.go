package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoRows is returned when a query expected to return a row returns none.
var ErrNoRows = errors.New("no rows in result set")

// PostgreSQL SQLSTATE codes for constraint violations.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgCheckViolation     = "23514"
)

// IsNoRows returns true if the error indicates no rows were found.
// This handles both pgx.ErrNoRows and sql.ErrNoRows.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}

// ViolatedConstraint reports which of the named constraints err violates.
// PostgreSQL errors are matched on the constraint name; SQLite has no
// structured constraint name, so trigger RAISE messages carrying the
// name are matched on the error text.
func ViolatedConstraint(err error, names ...string) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation, pgCheckViolation:
		default:
			return "", false
		}
		for _, name := range names {
			if pgErr.ConstraintName == name {
				return name, true
			}
		}
		return "", false
	}

	msg := err.Error()
	for _, name := range names {
		if strings.Contains(msg, name) {
			return name, true
		}
	}
	return "", false
}
