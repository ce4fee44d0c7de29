package sqlite

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/swearjar/resources"
)

type sqliteClient struct {
	db *sqlx.DB
}

// NewSQLiteClient opens (creating if needed) the ledger database in dir and
// applies pending migrations.
func NewSQLiteClient(ctx context.Context, dir, file string) (*sqliteClient, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "cant create db dir")
	}
	dbx, err := sqlx.ConnectContext(ctx, "sqlite", filepath.Join(dir, file))
	if err != nil {
		return nil, errors.Wrap(err, "cant open db")
	}
	dbx.SetMaxOpenConns(1)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, errors.Wrap(err, "migrate up failed")
	}
	if n > 0 {
		log.WithField("object", "sqliteClient").Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}
