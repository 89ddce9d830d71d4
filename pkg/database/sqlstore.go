package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// sqlDialect 描述 PostgreSQL 与 SQLite 之间的差异
type sqlDialect struct {
	name        string
	placeholder func(n int) string
	// column expressions that render JSON/timestamp columns as text
	contentSelect string
	spaceSelect   string
}

var contentColumns = []string{
	"id", "content_type", "space_id", "subject", "title", "question", "author", "tags",
	"like_count", "view_count", "follower_count", "published", "updated", "start_date", "details",
}

var spaceColumns = []string{"id", "name", "display_name", "description", "tags", "content_types", "published"}

// sqlStore is the unified-table repository shared by the PostgreSQL and SQLite backends
type sqlStore struct {
	db      *sql.DB
	dialect sqlDialect
	log     logrus.FieldLogger
	now     func() time.Time
}

func (s *sqlStore) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// upsertSQL builds INSERT ... ON CONFLICT (id) DO UPDATE for table/columns
func (s *sqlStore) upsertSQL(table string, columns []string) string {
	sets := make([]string, 0, len(columns)-1)
	for _, col := range columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table, strings.Join(columns, ", "), s.placeholders(1, len(columns)), strings.Join(sets, ", "))
}

// recordArgs flattens a record map into column-ordered args; maps and slices become JSON text
func recordArgs(rec map[string]interface{}, columns []string) ([]interface{}, error) {
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		v := rec[col]
		switch v.(type) {
		case map[string]interface{}, []string, []interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal %s: %w", col, err)
			}
			args = append(args, string(b))
		default:
			args = append(args, v)
		}
	}
	return args, nil
}

// scanContent reads one content row (all columns rendered as text/ints)
func scanContent(scanner interface{ Scan(...interface{}) error }, fallback models.ContentType) (models.Content, error) {
	var (
		id, contentType                   string
		spaceID, subject, title, question sql.NullString
		author, tags, details             sql.NullString
		likes, views, followers           sql.NullInt64
		published, updated, startDate     sql.NullString
	)
	if err := scanner.Scan(&id, &contentType, &spaceID, &subject, &title, &question, &author, &tags,
		&likes, &views, &followers, &published, &updated, &startDate, &details); err != nil {
		return models.Content{}, err
	}
	raw := map[string]interface{}{
		"id":             id,
		"content_type":   contentType,
		"space_id":       spaceID.String,
		"subject":        subject.String,
		"title":          title.String,
		"question":       question.String,
		"like_count":     likes.Int64,
		"view_count":     views.Int64,
		"follower_count": followers.Int64,
		"published":      published.String,
		"updated":        updated.String,
		"start_date":     startDate.String,
	}
	if err := decodeJSONColumn(author, "author", raw); err != nil {
		return models.Content{}, err
	}
	if err := decodeJSONColumn(tags, "tags", raw); err != nil {
		return models.Content{}, err
	}
	if err := decodeJSONColumn(details, "details", raw); err != nil {
		return models.Content{}, err
	}
	return NormalizeContent(raw, fallback), nil
}

func scanSpace(scanner interface{ Scan(...interface{}) error }) (models.Space, error) {
	var (
		id, name                      string
		displayName, description      sql.NullString
		tags, contentTypes, published sql.NullString
	)
	if err := scanner.Scan(&id, &name, &displayName, &description, &tags, &contentTypes, &published); err != nil {
		return models.Space{}, err
	}
	raw := map[string]interface{}{
		"id":           id,
		"name":         name,
		"display_name": displayName.String,
		"description":  description.String,
		"published":    published.String,
	}
	if err := decodeJSONColumn(tags, "tags", raw); err != nil {
		return models.Space{}, err
	}
	if err := decodeJSONColumn(contentTypes, "content_types", raw); err != nil {
		return models.Space{}, err
	}
	return NormalizeSpace(raw), nil
}

func decodeJSONColumn(col sql.NullString, key string, raw map[string]interface{}) error {
	if !col.Valid || strings.TrimSpace(col.String) == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return fmt.Errorf("failed to decode %s column: %w", key, err)
	}
	raw[key] = v
	return nil
}

func (s *sqlStore) queryContent(ctx context.Context, fallback models.ContentType, where string, args ...interface{}) ([]models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM content %s", s.dialect.contentSelect, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows, fallback)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content: %w", err)
	}
	return items, nil
}

// ================= Spaces =================

func (s *sqlStore) ListSpaces(ctx context.Context) ([]models.Space, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM spaces ORDER BY published DESC NULLS LAST, name ASC", s.dialect.spaceSelect))
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()
	spaces := make([]models.Space, 0)
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

func (s *sqlStore) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM spaces WHERE id = %s", s.dialect.spaceSelect, s.dialect.placeholder(1)), id)
	sp, err := scanSpace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("space", id)
		}
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return &sp, nil
}

func (s *sqlStore) CreateSpace(ctx context.Context, space *models.Space) error {
	newSpace(space)
	args, err := recordArgs(spaceRecord(space), spaceColumns)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO spaces (%s) VALUES (%s)", strings.Join(spaceColumns, ", "), s.placeholders(1, len(spaceColumns)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	s.log.WithField("space_id", space.ID).Info("Created space")
	return nil
}

func (s *sqlStore) UpdateSpace(ctx context.Context, id string, patch models.SpacePatch) (*models.Space, error) {
	existing, err := s.GetSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(existing)
	args, err := recordArgs(spaceRecord(existing), spaceColumns[1:])
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(spaceColumns)-1)
	for i, col := range spaceColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = %s", col, s.dialect.placeholder(i+1)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE spaces SET %s WHERE id = %s", strings.Join(sets, ", "), s.dialect.placeholder(len(args)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update space: %w", err)
	}
	return existing, nil
}

func (s *sqlStore) DeleteSpace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM spaces WHERE id = "+s.dialect.placeholder(1), id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("space", id)
	}
	return nil
}

func (s *sqlStore) UpsertSpace(ctx context.Context, space *models.Space) error {
	newSpace(space)
	args, err := recordArgs(spaceRecord(space), spaceColumns)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertSQL("spaces", spaceColumns), args...); err != nil {
		return fmt.Errorf("failed to upsert space: %w", err)
	}
	return nil
}

// ================= Content =================

func (s *sqlStore) FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	where := fmt.Sprintf("WHERE space_id = %s AND content_type = %s", s.dialect.placeholder(1), s.dialect.placeholder(2))
	items, err := s.queryContent(ctx, variant, where, spaceID, string(variant))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s content: %w", variant, err)
	}
	return items, nil
}

func (s *sqlStore) FetchContentByID(ctx context.Context, id string, variant models.ContentType) (*models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM content WHERE id = %s AND content_type = %s", s.dialect.contentSelect, s.dialect.placeholder(1), s.dialect.placeholder(2)),
		id, string(variant))
	c, err := scanContent(row, variant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(string(variant), id)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", variant, err)
	}
	return &c, nil
}

func (s *sqlStore) ListContent(ctx context.Context, variant models.ContentType) ([]models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	where := fmt.Sprintf("WHERE content_type = %s ORDER BY published DESC NULLS LAST", s.dialect.placeholder(1))
	items, err := s.queryContent(ctx, variant, where, string(variant))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s content: %w", variant, err)
	}
	return items, nil
}

func (s *sqlStore) CreateContent(ctx context.Context, variant models.ContentType, fields map[string]interface{}) (*models.Content, error) {
	c, err := newContent(variant, fields, s.now())
	if err != nil {
		return nil, err
	}
	args, err := recordArgs(contentRecord(&c), contentColumns)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("INSERT INTO content (%s) VALUES (%s)", strings.Join(contentColumns, ", "), s.placeholders(1, len(contentColumns)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", variant, err)
	}
	s.log.WithFields(logrus.Fields{"id": c.ID, "content_type": variant}).Info("Created content")
	return &c, nil
}

func (s *sqlStore) UpdateContent(ctx context.Context, id string, variant models.ContentType, patch map[string]interface{}) (*models.Content, error) {
	existing, err := s.FetchContentByID(ctx, id, variant)
	if err != nil {
		return nil, err
	}
	updated, err := patchContent(*existing, patch, s.now())
	if err != nil {
		return nil, err
	}
	cols := contentColumns[2:] // id and content_type never change
	args, err := recordArgs(contentRecord(&updated), cols)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(cols))
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", col, s.dialect.placeholder(i+1)))
	}
	args = append(args, id, string(variant))
	query := fmt.Sprintf("UPDATE content SET %s WHERE id = %s AND content_type = %s",
		strings.Join(sets, ", "), s.dialect.placeholder(len(args)-1), s.dialect.placeholder(len(args)))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", variant, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFound(string(variant), id)
	}
	return &updated, nil
}

func (s *sqlStore) DeleteContent(ctx context.Context, id string, variant models.ContentType) error {
	if err := checkVariant(variant); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM content WHERE id = %s AND content_type = %s", s.dialect.placeholder(1), s.dialect.placeholder(2)),
		id, string(variant))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", variant, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(string(variant), id)
	}
	s.log.WithFields(logrus.Fields{"id": id, "content_type": variant}).Info("Deleted content")
	return nil
}

func (s *sqlStore) UpsertContent(ctx context.Context, c *models.Content) error {
	if err := checkVariant(c.ContentType); err != nil {
		return err
	}
	args, err := recordArgs(contentRecord(c), contentColumns)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertSQL("content", contentColumns), args...); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", c.ContentType, c.ID, err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *sqlStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭连接
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle (schema migration)
func (s *sqlStore) DB() *sql.DB {
	return s.db
}
