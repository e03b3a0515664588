package store

import (
	"database/sql"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate brings the schema up to date. It opens a short-lived
// database/sql connection because goose does not speak pgxpool.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return util.WrapError("open migration connection", err)
	}
	defer util.SafeCloseFunc(db, "migration connection")()

	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return util.WrapError("set migration dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return util.WrapError("apply migrations", err)
	}
	return nil
}
