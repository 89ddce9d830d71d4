package database

import (
	"strings"
	"testing"
)

func TestAddConnectionParams(t *testing.T) {
	cases := []struct {
		dsn, params, want string
	}{
		{"postgres://u@h/db", "connect_timeout=10", "postgres://u@h/db?connect_timeout=10"},
		{"postgres://u@h/db?sslmode=disable", "a=1&b=2", "postgres://u@h/db?sslmode=disable&a=1&b=2"},
		{"host=h dbname=db", "a=1&b=2", "host=h dbname=db a=1 b=2"},
		{"postgres://u@h/db", "", "postgres://u@h/db"},
	}
	for _, tc := range cases {
		if got := addConnectionParams(tc.dsn, tc.params); got != tc.want {
			t.Errorf("addConnectionParams(%q, %q) = %q, want %q", tc.dsn, tc.params, got, tc.want)
		}
	}
}

func TestConnectionStrategiesEndWithRawDSN(t *testing.T) {
	strategies := connectionStrategies(" postgres://u@h/db\n")
	if len(strategies) != 4 {
		t.Fatalf("strategies = %d", len(strategies))
	}
	if strategies[len(strategies)-1] != "postgres://u@h/db" {
		t.Fatalf("last strategy = %q", strategies[len(strategies)-1])
	}
	for _, s := range strategies[:3] {
		if !strings.Contains(s, "prefer_simple_protocol=true") {
			t.Errorf("strategy %q missing simple protocol", s)
		}
	}
}

func TestUpsertSQL(t *testing.T) {
	pg := &sqlStore{dialect: postgresDialect}
	got := pg.upsertSQL("spaces", []string{"id", "name", "tags"})
	want := "INSERT INTO spaces (id, name, tags) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET name = excluded.name, tags = excluded.tags"
	if got != want {
		t.Fatalf("postgres upsert:\n got %s\nwant %s", got, want)
	}

	lite := &sqlStore{dialect: sqliteDialect}
	if got := lite.placeholders(1, 3); got != "?, ?, ?" {
		t.Fatalf("sqlite placeholders = %q", got)
	}
}

func TestRecordArgsEncodesJSON(t *testing.T) {
	args, err := recordArgs(map[string]interface{}{
		"id":   "x",
		"tags": []string{"a"},
		"meta": map[string]interface{}{"k": 1},
	}, []string{"id", "tags", "meta", "missing"})
	if err != nil {
		t.Fatalf("recordArgs: %v", err)
	}
	if args[0] != "x" || args[1] != `["a"]` || args[2] != `{"k":1}` || args[3] != nil {
		t.Fatalf("args = %#v", args)
	}
}
