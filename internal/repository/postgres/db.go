package postgres

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/postgres/migrations"
)

func New(dsn string) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", dsn)
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, ".")
}
