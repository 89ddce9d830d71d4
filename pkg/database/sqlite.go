package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteDatabase 本地开发 / 测试用的 SQLite 实现
type SQLiteDatabase struct {
	*sqlStore
}

var sqliteDialect = sqlDialect{
	name:        DriverSQLite,
	placeholder: func(int) string { return "?" },
	contentSelect: "id, content_type, space_id, subject, title, question, author, tags, " +
		"like_count, view_count, follower_count, published, updated, start_date, details",
	spaceSelect: "id, name, display_name, description, tags, content_types, published",
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA cache_size = -64000",
}

// NewSQLiteDatabase opens (creating if needed) the database file at path and
// applies the schema. path may be ":memory:".
func NewSQLiteDatabase(path string, log logrus.FieldLogger) (*SQLiteDatabase, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if err := ApplySchema(context.Background(), db, SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteDatabase{sqlStore: &sqlStore{db: db, dialect: sqliteDialect, log: log, now: time.Now}}, nil
}

// Migrate 重新应用建表语句（幂等）
func (db *SQLiteDatabase) Migrate(ctx context.Context) error {
	return ApplySchema(ctx, db.db, SQLiteSchema)
}
