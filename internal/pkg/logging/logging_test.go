package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterRotates(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	day1 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	w.now = func() time.Time { return day1 }
	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.now = func() time.Time { return day2 }
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for day, want := range map[time.Time]string{day1: "first", day2: "second"} {
		raw, err := os.ReadFile(filepath.Join(dir, DailyFilename(day)))
		if err != nil {
			t.Fatalf("read %s: %v", DailyFilename(day), err)
		}
		if strings.TrimSpace(string(raw)) != want {
			t.Errorf("%s: expected %q, got %q", DailyFilename(day), want, raw)
		}
	}
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello from test")
	_ = logger.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, DailyFilename(time.Now())))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "hello from test") {
		t.Errorf("log line missing from file: %q", raw)
	}
}
