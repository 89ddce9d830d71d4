package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus/hooks/test"
)

func newTestSQLite(t *testing.T) *SQLiteDatabase {
	t.Helper()
	log, _ := test.NewNullLogger()
	db, err := NewSQLiteDatabase(filepath.Join(t.TempDir(), "nested", "portal.db"), log)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSQLiteSpaceCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	space := &models.Space{Name: "eng", DisplayName: "Engineering", Tags: []string{"platform"}}
	if err := db.CreateSpace(ctx, space); err != nil {
		t.Fatalf("CreateSpace: %v", err)
	}
	if space.ID == "" {
		t.Fatal("CreateSpace should assign an id")
	}

	got, err := db.GetSpace(ctx, space.ID)
	if err != nil {
		t.Fatalf("GetSpace: %v", err)
	}
	if got.DisplayName != "Engineering" || len(got.Tags) != 1 || got.Tags[0] != "platform" {
		t.Fatalf("GetSpace = %+v", got)
	}

	desc := "Platform team"
	updated, err := db.UpdateSpace(ctx, space.ID, models.SpacePatch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateSpace: %v", err)
	}
	if updated.Description != desc || updated.Name != "eng" {
		t.Fatalf("UpdateSpace = %+v", updated)
	}

	spaces, err := db.ListSpaces(ctx)
	if err != nil || len(spaces) != 1 {
		t.Fatalf("ListSpaces = %v, %v", spaces, err)
	}

	if err := db.DeleteSpace(ctx, space.ID); err != nil {
		t.Fatalf("DeleteSpace: %v", err)
	}
	if _, err := db.GetSpace(ctx, space.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSpace after delete: %v", err)
	}
	if err := db.DeleteSpace(ctx, space.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteSpace: %v", err)
	}
	if _, err := db.UpdateSpace(ctx, "missing", models.SpacePatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateSpace missing: %v", err)
	}
}

func TestSQLiteContentCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	created, err := db.CreateContent(ctx, models.ContentPoll, map[string]interface{}{
		"space_id": "s1",
		"question": "Lunch?",
		"options":  []interface{}{"Tacos", "Ramen"},
	})
	if err != nil {
		t.Fatalf("CreateContent: %v", err)
	}
	if created.ID == "" || created.ContentType != models.ContentPoll {
		t.Fatalf("created = %+v", created)
	}
	if created.Published == nil || !created.Published.Equal(fixed) {
		t.Fatalf("published should default to now, got %v", created.Published)
	}

	got, err := db.FetchContentByID(ctx, created.ID, models.ContentPoll)
	if err != nil {
		t.Fatalf("FetchContentByID: %v", err)
	}
	if got.Question != "Lunch?" || len(got.Options) != 2 || got.Options[1].Text != "Ramen" || got.SpaceID != "s1" {
		t.Fatalf("fetched = %+v", got)
	}

	// wrong variant must not leak across types
	if _, err := db.FetchContentByID(ctx, created.ID, models.ContentPost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fetch as post: %v", err)
	}

	later := fixed.Add(time.Hour)
	db.now = func() time.Time { return later }
	patched, err := db.UpdateContent(ctx, created.ID, models.ContentPoll, map[string]interface{}{
		"likeCount":    4,
		"content_type": "post",
	})
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if patched.LikeCount != 4 || patched.ContentType != models.ContentPoll || patched.Question != "Lunch?" {
		t.Fatalf("patched = %+v", patched)
	}
	if patched.Updated == nil || !patched.Updated.Equal(later) {
		t.Fatalf("updated not stamped: %v", patched.Updated)
	}
	reread, _ := db.FetchContentByID(ctx, created.ID, models.ContentPoll)
	if reread.LikeCount != 4 || !reread.Published.Equal(fixed) {
		t.Fatalf("update not persisted: %+v", reread)
	}

	if err := db.DeleteContent(ctx, created.ID, models.ContentPoll); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if err := db.DeleteContent(ctx, created.ID, models.ContentPoll); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := db.UpdateContent(ctx, created.ID, models.ContentPoll, map[string]interface{}{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update deleted: %v", err)
	}
}

func TestSQLiteRejectsUnknownVariant(t *testing.T) {
	db := newTestSQLite(t)
	if _, err := db.FetchContentBySpace(context.Background(), "s1", models.ContentVideo); !errors.Is(err, ErrInvalidVariant) {
		t.Fatalf("expected ErrInvalidVariant, got %v", err)
	}
	if _, err := db.CreateContent(context.Background(), "discussion", nil); !errors.Is(err, ErrInvalidVariant) {
		t.Fatalf("expected ErrInvalidVariant, got %v", err)
	}
}

func TestSQLiteFetchBySpace(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	items := []models.Content{
		{ID: "p1", ContentType: models.ContentPost, SpaceID: "s1", Subject: "old", Published: at("2024-01-01T00:00:00Z")},
		{ID: "p2", ContentType: models.ContentPost, SpaceID: "s1", Subject: "new", Published: at("2024-02-01T00:00:00Z")},
		{ID: "p3", ContentType: models.ContentPost, SpaceID: "s2", Subject: "other space"},
		{ID: "d1", ContentType: models.ContentDocument, SpaceID: "s1", Title: "doc"},
		{ID: "u1", ContentType: models.ContentPost, Subject: "unassigned"},
	}
	for i := range items {
		if err := db.UpsertContent(ctx, &items[i]); err != nil {
			t.Fatalf("UpsertContent %s: %v", items[i].ID, err)
		}
	}

	posts, err := db.FetchContentBySpace(ctx, "s1", models.ContentPost)
	if err != nil {
		t.Fatalf("FetchContentBySpace: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts in s1 = %d, want 2", len(posts))
	}

	empty, err := db.FetchContentBySpace(ctx, "nope", models.ContentEvent)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("unknown space should give an empty non-nil list, got %v, %v", empty, err)
	}

	all, err := db.ListContent(ctx, models.ContentPost)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(all) != 4 || all[0].ID != "p2" || all[1].ID != "p1" {
		t.Fatalf("ListContent order = %v", []string{all[0].ID, all[1].ID})
	}

	// upsert overwrites in place
	items[0].Subject = "renamed"
	if err := db.UpsertContent(ctx, &items[0]); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, _ := db.FetchContentByID(ctx, "p1", models.ContentPost)
	if got.Subject != "renamed" {
		t.Fatalf("upsert did not overwrite: %q", got.Subject)
	}
	posts, _ = db.FetchContentBySpace(ctx, "s1", models.ContentPost)
	if len(posts) != 2 {
		t.Fatalf("upsert duplicated rows: %d", len(posts))
	}
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	db := newTestSQLite(t)
	var m Migrator = db
	for i := 0; i < 2; i++ {
		if err := m.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate #%d: %v", i+1, err)
		}
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestNewDatabaseSQLite(t *testing.T) {
	log, _ := test.NewNullLogger()
	db, err := NewDatabase(DatabaseConfig{Driver: "SQLite", SQLitePath: ":memory:"}, log)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	defer db.Close()
	if _, ok := db.(*SQLiteDatabase); !ok {
		t.Fatalf("NewDatabase returned %T", db)
	}

	if _, err := NewDatabase(DatabaseConfig{Driver: "mongo"}, log); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := NewDatabase(DatabaseConfig{Driver: DriverPostgres}, log); err == nil {
		t.Fatal("expected error for postgres without a DSN")
	}
}

func TestResolveDriver(t *testing.T) {
	t.Setenv("VERCEL_ENV", "")
	t.Setenv("VERCEL_URL", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	cases := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"explicit", DatabaseConfig{Driver: " Postgres "}, DriverPostgres},
		{"dsn", DatabaseConfig{PostgresDSN: "postgres://x", SupabaseURL: "u", SupabaseKey: "k"}, DriverPostgres},
		{"supabase", DatabaseConfig{SupabaseURL: "u", SupabaseKey: "k"}, DriverSupabase},
		{"fallback", DatabaseConfig{}, DriverSQLite},
	}
	for _, tc := range cases {
		if got := tc.cfg.ResolveDriver(); got != tc.want {
			t.Errorf("%s: ResolveDriver = %q, want %q", tc.name, got, tc.want)
		}
	}

	t.Setenv("VERCEL_ENV", "production")
	cfg := DatabaseConfig{PostgresDSN: "postgres://x", SupabaseURL: "u", SupabaseKey: "k"}
	if got := cfg.ResolveDriver(); got != DriverSupabase {
		t.Errorf("serverless should prefer supabase, got %q", got)
	}
}
