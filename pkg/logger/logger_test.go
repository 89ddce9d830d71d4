package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"fusion-portal-backend/pkg/config"

	"github.com/sirupsen/logrus"
)

func TestNewWritesJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Environment: "development", LogLevel: "info", LogFormat: "auto"}, &buf)
	log.WithField("space_id", "s1").Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello" || entry["space_id"] != "s1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogLevel: "info", LogFormat: "text"}, &buf)
	log.Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestNewLevel(t *testing.T) {
	cases := []struct {
		cfg  config.Config
		want logrus.Level
	}{
		{config.Config{LogLevel: "warn"}, logrus.WarnLevel},
		{config.Config{LogLevel: "nonsense"}, logrus.InfoLevel},
		{config.Config{LogLevel: "error", Debug: true}, logrus.DebugLevel},
	}
	for _, tc := range cases {
		cfg := tc.cfg
		if got := NewWithWriter(&cfg, &bytes.Buffer{}).GetLevel(); got != tc.want {
			t.Errorf("%+v: level %s, want %s", tc.cfg, got, tc.want)
		}
	}
}
