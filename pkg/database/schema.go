package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrator is implemented by the SQL backends.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// PostgresSchema 统一内容表结构 (Supabase 使用同一份 schema)
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS spaces (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    display_name  TEXT,
    description   TEXT,
    tags          JSONB NOT NULL DEFAULT '[]'::jsonb,
    content_types JSONB NOT NULL DEFAULT '[]'::jsonb,
    published     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS content (
    id             TEXT PRIMARY KEY,
    content_type   TEXT NOT NULL,
    space_id       TEXT,
    subject        TEXT,
    title          TEXT,
    question       TEXT,
    author         JSONB NOT NULL DEFAULT '{}'::jsonb,
    tags           JSONB NOT NULL DEFAULT '[]'::jsonb,
    like_count     INTEGER NOT NULL DEFAULT 0,
    view_count     INTEGER NOT NULL DEFAULT 0,
    follower_count INTEGER NOT NULL DEFAULT 0,
    published      TIMESTAMPTZ,
    updated        TIMESTAMPTZ,
    start_date     TIMESTAMPTZ,
    details        JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_content_space_type ON content (space_id, content_type);
CREATE INDEX IF NOT EXISTS idx_content_type_published ON content (content_type, published DESC);
`

// SQLiteSchema stores JSON and timestamps as TEXT
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS spaces (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    display_name  TEXT,
    description   TEXT,
    tags          TEXT NOT NULL DEFAULT '[]',
    content_types TEXT NOT NULL DEFAULT '[]',
    published     TEXT
);

CREATE TABLE IF NOT EXISTS content (
    id             TEXT PRIMARY KEY,
    content_type   TEXT NOT NULL,
    space_id       TEXT,
    subject        TEXT,
    title          TEXT,
    question       TEXT,
    author         TEXT NOT NULL DEFAULT '{}',
    tags           TEXT NOT NULL DEFAULT '[]',
    like_count     INTEGER NOT NULL DEFAULT 0,
    view_count     INTEGER NOT NULL DEFAULT 0,
    follower_count INTEGER NOT NULL DEFAULT 0,
    published      TEXT,
    updated        TEXT,
    start_date     TEXT,
    details        TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_content_space_type ON content (space_id, content_type);
CREATE INDEX IF NOT EXISTS idx_content_type_published ON content (content_type, published DESC);
`

// ApplySchema 逐条执行建表语句
func ApplySchema(ctx context.Context, db *sql.DB, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
