package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"formdeck/internal/apperror"
)

// translate maps constraint violations to client errors; the rest stays a database error.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewDatabase(op, err)
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return apperror.NewConflict("record already exists").
			WithDetail("constraint", pgErr.ConstraintName).WithCause(err)
	case "23503": // foreign_key_violation
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("constraint", pgErr.ConstraintName).WithCause(err)
	case "23502": // not_null_violation
		return apperror.NewFieldErrors(map[string]string{pgErr.ColumnName: "value is required"}).WithCause(err)
	case "22P02", "22007", "22008": // invalid text representation / datetime
		return apperror.NewValidation(pgErr.Message).WithCause(err)
	case "42703": // undefined_column
		return apperror.NewValidation(pgErr.Message).WithCause(err)
	}
	return apperror.NewDatabase(op, err)
}
