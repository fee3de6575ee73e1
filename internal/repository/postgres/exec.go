package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// execOne runs a write and reports sql.ErrNoRows when nothing matched.
func execOne(ctx context.Context, db *sqlx.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
