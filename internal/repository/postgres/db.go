package postgres

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"medride/internal/repository"
)

// Querier is an interface satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

const uniqueViolation = "23505"

// mapWriteError converts unique violations into repository.ErrConflict.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// exists reports whether a row with the given id exists in table.
func exists(ctx context.Context, q Querier, table, id string) (bool, error) {
	var found bool
	err := q.GetContext(ctx, &found, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id)
	return found, err
}

// conditionalMiss resolves a zero-row conditional write into ErrNotFound or ErrConflict.
func conditionalMiss(ctx context.Context, q Querier, table, id string) error {
	found, err := exists(ctx, q, table, id)
	if err != nil {
		return err
	}
	if !found {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
