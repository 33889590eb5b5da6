package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgresUniqueViolation is the SQLSTATE code Postgres returns for a
// unique constraint violation.
const postgresUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation
}
