package seed

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus/hooks/test"
)

func openDB(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	log, _ := test.NewNullLogger()
	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "seed.db"), log)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleFixturePath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Join(filepath.Dir(filename), "..", "..", "scripts", "seed.yaml")
}

func TestImportSampleFixture(t *testing.T) {
	fx, err := LoadFile(sampleFixturePath(t))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	db := openDB(t)
	log, _ := test.NewNullLogger()

	report, err := NewImporter(db, log).Import(context.Background(), fx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Spaces != 2 {
		t.Fatalf("spaces = %d, want 2", report.Spaces)
	}
	if report.Content[models.ContentPost] != 2 || report.Content[models.ContentDocument] != 2 ||
		report.Content[models.ContentEvent] != 1 || report.Content[models.ContentPoll] != 1 {
		t.Fatalf("unexpected content counts %v", report.Content)
	}
	if len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0], "video-townhall") {
		t.Fatalf("expected the video to be skipped, got %v", report.Skipped)
	}

	var eng SpaceSummary
	for _, s := range report.PerSpace {
		if s.ID == "space-engineering" {
			eng = s
		}
	}
	if eng.Counts["total"] != 4 || eng.Counts["blogs"] != 1 || eng.Counts["polls"] != 1 {
		t.Fatalf("engineering counts = %v", eng.Counts)
	}

	poll, err := db.FetchContentByID(context.Background(), "poll-team-color", models.ContentPoll)
	if err != nil {
		t.Fatalf("fetch poll: %v", err)
	}
	if len(poll.Options) != 3 || poll.Options[0].Text != "Teal" || poll.Options[2].DisplayOrder != 2 {
		t.Fatalf("poll options = %+v", poll.Options)
	}

	post, err := db.FetchContentByID(context.Background(), "post-alpha-launch", models.ContentPost)
	if err != nil {
		t.Fatalf("fetch post: %v", err)
	}
	if post.LikeCount != 12 || post.Author.DisplayName != "Dana Reyes" || !strings.Contains(post.Body, "alpha is live") {
		t.Fatalf("legacy fields not normalized: %+v", post)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	fx, err := LoadFile(sampleFixturePath(t))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	db := openDB(t)
	im := NewImporter(db, nil)
	for i := 0; i < 2; i++ {
		if _, err := im.Import(context.Background(), fx); err != nil {
			t.Fatalf("Import #%d: %v", i+1, err)
		}
	}
	posts, err := db.FetchContentBySpace(context.Background(), "space-engineering", models.ContentPost)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("re-import duplicated posts: %d", len(posts))
	}
}

func TestLoadJSONFixture(t *testing.T) {
	fx, err := Load(strings.NewReader(`{"spaces":[{"id":"s1","name":"one","posts":[{"subject":"hi","likeCount":3}]}]}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	report, err := NewImporter(openDB(t), nil).Import(context.Background(), fx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Content[models.ContentPost] != 1 || report.PerSpace[0].Counts["total"] != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestImportRejectsBadFixtures(t *testing.T) {
	if _, err := Load(strings.NewReader("  ")); err == nil {
		t.Fatal("expected error for empty fixture")
	}
	fx := &Fixture{Spaces: []map[string]interface{}{{"id": "s1"}}}
	if _, err := NewImporter(openDB(t), nil).Import(context.Background(), fx); err == nil {
		t.Fatal("expected error for nameless space")
	}
	fx = &Fixture{Spaces: []map[string]interface{}{{"id": "bad id", "name": "x"}}}
	if _, err := NewImporter(openDB(t), nil).Import(context.Background(), fx); err == nil {
		t.Fatal("expected error for malformed space id")
	}
}
