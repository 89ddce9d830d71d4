package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus/hooks/test"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		DatabaseDriver:    database.DriverSQLite,
		SQLitePath:        ":memory:",
		AllowedOrigins:    []string{"*"},
		FetchTimeout:      2 * time.Second,
		FeedPartialPolicy: "strict",
		FeedPageSize:      20,
	}
}

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

// seededDB is an in-memory repository holding one space with mixed content
func seededDB(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	log, _ := test.NewNullLogger()
	db, err := database.NewSQLiteDatabase(":memory:", log)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.UpsertSpace(ctx, &models.Space{ID: "s1", Name: "eng"}); err != nil {
		t.Fatalf("UpsertSpace: %v", err)
	}
	items := []models.Content{
		{ID: "p1", ContentType: models.ContentPost, SpaceID: "s1", Subject: "Release notes", LikeCount: 9, Published: ts("2024-03-01T00:00:00Z")},
		{ID: "d1", ContentType: models.ContentDocument, SpaceID: "s1", Title: "Runbook", Published: ts("2024-02-01T00:00:00Z")},
		{ID: "e1", ContentType: models.ContentEvent, SpaceID: "s1", Subject: "Meetup", StartDate: ts("2024-04-01T00:00:00Z")},
		{ID: "q1", ContentType: models.ContentPoll, SpaceID: "s1", Question: "Lunch?", Published: ts("2024-01-01T00:00:00Z"),
			Options: []models.PollOption{{Text: "A"}, {Text: "B", DisplayOrder: 1}}},
		{ID: "p9", ContentType: models.ContentPost, SpaceID: "s2", Subject: "Elsewhere"},
	}
	for i := range items {
		if err := db.UpsertContent(ctx, &items[i]); err != nil {
			t.Fatalf("UpsertContent: %v", err)
		}
	}
	return db
}

// flakyDB fails every poll fetch
type flakyDB struct {
	*database.SQLiteDatabase
}

func (f flakyDB) FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error) {
	if variant == models.ContentPoll {
		return nil, errors.New("connection reset")
	}
	return f.SQLiteDatabase.FetchContentBySpace(ctx, spaceID, variant)
}

func newTestRouter(t *testing.T, db database.DatabaseInterface) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()
	return New(Deps{Config: testConfig(), DB: db, Log: log})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not an envelope: %v\n%s", method, path, err, rec.Body.String())
	}
	return rec, env
}

type feedPage struct {
	Items  []models.Content `json:"items"`
	Counts map[string]int   `json:"counts"`
}

func itemIDs(items []models.Content) string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return strings.Join(ids, ",")
}

func TestSpaceContentFeed(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	rec, env := do(t, h, http.MethodGet, "/api/spaces/s1/content", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var page feedPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got := itemIDs(page.Items); got != "e1,p1,d1,q1" {
		t.Fatalf("feed order = %s", got)
	}
	if page.Counts["total"] != 4 || page.Counts["blogs"] != 1 || page.Counts["videos"] != 0 {
		t.Fatalf("counts = %v", page.Counts)
	}
	if env.Meta == nil || env.Meta.Total != 4 || env.Meta.PerPage != 20 || env.Meta.TotalPages != 1 {
		t.Fatalf("meta = %+v", env.Meta)
	}
	if rec.Header().Get("X-Total-Count") != "4" {
		t.Fatalf("X-Total-Count = %q", rec.Header().Get("X-Total-Count"))
	}
}

func TestSpaceContentFilters(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	cases := []struct {
		query string
		want  string
		total int
	}{
		{"?tab=poll", "q1", 1},
		{"?tab=polls", "", 0},
		{"?tab=blogs", "p1", 1},
		{"?q=runbook", "d1", 1},
		{"?q=notes%20", "", 0},
		{"?q=%20notes", "p1", 1},
		{"?tab=poll%20", "", 0},
		{"?action=popular", "p1", 1},
		{"?sort=oldest", "q1,d1,p1,e1", 4},
		{"?page=2&page_size=3", "q1", 4},
		{"?page=9", "", 4},
	}
	for _, tc := range cases {
		_, env := do(t, h, http.MethodGet, "/api/spaces/s1/content"+tc.query, "")
		var page feedPage
		if err := json.Unmarshal(env.Data, &page); err != nil {
			t.Fatalf("%s: decode: %v", tc.query, err)
		}
		if got := itemIDs(page.Items); got != tc.want {
			t.Errorf("%s: items = %q, want %q", tc.query, got, tc.want)
		}
		if env.Meta == nil || env.Meta.Total != tc.total {
			t.Errorf("%s: meta = %+v, want total %d", tc.query, env.Meta, tc.total)
		}
		if page.Counts["total"] != 4 {
			t.Errorf("%s: counts should describe the unfiltered feed, got %v", tc.query, page.Counts)
		}
	}
}

func TestInvalidSpaceID(t *testing.T) {
	h := newTestRouter(t, seededDB(t))
	for _, path := range []string{"/api/spaces/bad%20id/content", "/api/spaces/x%09y/counts"} {
		rec, env := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_SPACE" {
			t.Errorf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestUnknownSpace(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	rec, env := do(t, h, http.MethodGet, "/api/spaces/missing", "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("GetSpace status = %d", rec.Code)
	}

	rec, env = do(t, h, http.MethodGet, "/api/spaces/missing/content", "")
	var page feedPage
	_ = json.Unmarshal(env.Data, &page)
	if rec.Code != http.StatusOK || page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("feed of unknown space: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDataUnavailable(t *testing.T) {
	h := newTestRouter(t, flakyDB{seededDB(t)})

	for _, path := range []string{"/api/spaces/s1/content", "/api/spaces/s1/counts", "/api/spaces/s1"} {
		rec, env := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "DATA_UNAVAILABLE" {
			t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		var data struct {
			Items []interface{} `json:"items"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.Items == nil || len(data.Items) != 0 {
			t.Fatalf("%s: data should carry an empty item list, got %s", path, env.Data)
		}
	}
}

func TestGetSpaceGroupsContent(t *testing.T) {
	h := newTestRouter(t, seededDB(t))
	rec, env := do(t, h, http.MethodGet, "/api/spaces/s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data struct {
		Space  models.Space     `json:"space"`
		Posts  []models.Content `json:"posts"`
		Events []models.Content `json:"events"`
		Polls  []models.Content `json:"polls"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Space.Name != "eng" || len(data.Posts) != 1 || len(data.Events) != 1 || len(data.Polls[0].Options) != 2 {
		t.Fatalf("grouped space = %+v", data)
	}
}

func TestContentCRUD(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	rec, env := do(t, h, http.MethodPost, "/api/polls", `{"space_id":"s1","question":"Color?","options":["red"]}`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("one-option poll: status = %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodPost, "/api/posts", `{"space_id":"s1","likeCount":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("untitled post: status = %d", rec.Code)
	}
	rec, env = do(t, h, http.MethodPost, "/api/posts", `{"spaceId":"bad id","subject":"x"}`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "INVALID_SPACE" {
		t.Fatalf("bad space id: status = %d", rec.Code)
	}

	rec, env = do(t, h, http.MethodPost, "/api/polls", `{"spaceId":"s1","question":"Color?","options":["red","blue"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create poll: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created models.Content
	if err := json.Unmarshal(env.Data, &created); err != nil || !strings.HasPrefix(created.ID, "poll-") {
		t.Fatalf("created = %+v, %v", created, err)
	}

	rec, env = do(t, h, http.MethodPatch, "/api/polls/"+created.ID, `{"likeCount":3}`)
	var patched models.Content
	_ = json.Unmarshal(env.Data, &patched)
	if rec.Code != http.StatusOK || patched.LikeCount != 3 || patched.Updated == nil {
		t.Fatalf("patch: status = %d, item = %+v", rec.Code, patched)
	}

	_, env = do(t, h, http.MethodGet, "/api/spaces/s1/counts", "")
	var counts map[string]int
	_ = json.Unmarshal(env.Data, &counts)
	if counts["polls"] != 2 || counts["total"] != 5 {
		t.Fatalf("counts after create = %v", counts)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/posts/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("poll fetched as post: status = %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/polls/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodGet, "/api/polls/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: status = %d", rec.Code)
	}
}

func TestContentListBySpace(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	_, env := do(t, h, http.MethodGet, "/api/posts?space_id=s1", "")
	var data struct {
		Items []models.Content `json:"items"`
		Count int              `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Count != 1 || data.Items[0].ID != "p1" {
		t.Fatalf("posts in s1 = %+v", data)
	}

	_, env = do(t, h, http.MethodGet, "/api/posts", "")
	_ = json.Unmarshal(env.Data, &data)
	if data.Count != 2 {
		t.Fatalf("all posts = %d, want 2", data.Count)
	}
}

func TestSpaceCRUD(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	rec, _ := do(t, h, http.MethodPost, "/api/spaces", `{"display_name":"No name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nameless space: status = %d", rec.Code)
	}
	rec, env := do(t, h, http.MethodPost, "/api/spaces", `{"name":"people","tags":["hr"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create space: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var space models.Space
	_ = json.Unmarshal(env.Data, &space)

	rec, env = do(t, h, http.MethodPut, "/api/spaces/"+space.ID, `{"description":"People team"}`)
	_ = json.Unmarshal(env.Data, &space)
	if rec.Code != http.StatusOK || space.Description != "People team" || space.Name != "people" {
		t.Fatalf("update space: status = %d, space = %+v", rec.Code, space)
	}

	_, env = do(t, h, http.MethodGet, "/api/spaces", "")
	var list struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if list.Count != 2 {
		t.Fatalf("space count = %d", list.Count)
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/spaces/"+space.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete space: status = %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodDelete, "/api/spaces/"+space.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete twice: status = %d", rec.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	h := newTestRouter(t, seededDB(t))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"subject":"x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing content type: status = %d", rec.Code)
	}

	rec, env := do(t, h, http.MethodGet, "/api/nothing-here", "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown route: status = %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
}
