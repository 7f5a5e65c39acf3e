package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")

	entry, err := New(Options{Service: "taskboard-api", Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if entry.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", entry.Logger.GetLevel())
	}
	entry.WithField("event", "test_event").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"service=taskboard-api", "event=test_event", "hello"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q: %s", want, data)
		}
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	entry, err := New(Options{Service: "x", Level: "loud"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", entry.Logger.GetLevel())
	}
}
