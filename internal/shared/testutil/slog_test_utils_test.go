package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		if n := len(handler.GetRecords()); n != 2 {
			t.Errorf("expected 2 records, got %d", n)
		}
		if !handler.ContainsMessage("test message") {
			t.Error("expected to find 'test message'")
		}
		if !handler.ContainsAttr("key", "value") {
			t.Error("expected to find attribute key=value")
		}
	})

	t.Run("keeps attrs from With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "assembler")).Warn("skipping file", slog.String("kind", "MISSING_HEADER"))
		logger.Info("unscoped")

		records := handler.GetRecords()
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Attrs["component"] != "assembler" || records[0].Attrs["kind"] != "MISSING_HEADER" {
			t.Errorf("scoped record lost attrs: %v", records[0].Attrs)
		}
		if _, ok := records[1].Attrs["component"]; ok {
			t.Error("With attrs leaked onto the parent logger")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if n := len(handler.GetRecordsByLevel(slog.LevelInfo)); n != 1 {
			t.Errorf("expected 1 info record, got %d", n)
		}
		if n := len(handler.GetRecordsByLevel(slog.LevelError)); n != 1 {
			t.Errorf("expected 1 error record, got %d", n)
		}
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		if handler.Count() != 2 {
			t.Errorf("expected 2 records, got %d", handler.Count())
		}

		handler.Clear()
		if handler.Count() != 0 {
			t.Errorf("expected 0 records after clear, got %d", handler.Count())
		}
	})

	t.Run("assertion helpers", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("important message", slog.String("component", "test"))
		logger.Warn("warning message", slog.Int("retry", 3))

		AssertLogContains(t, handler, slog.LevelInfo, "important")
		AssertLogAttr(t, handler, "component", "test")
		AssertNoErrors(t, handler)
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.Info("concurrent log", slog.Int("goroutine", n))
			}(i)
		}
		wg.Wait()

		if handler.Count() != 10 {
			t.Errorf("expected 10 records from concurrent logging, got %d", handler.Count())
		}
	})
}

func TestWriteTrials(t *testing.T) {
	dir := WriteTrials(t, map[string]string{
		"a.csv":        TrialWithCounts,
		"nested/b.txt": TrialWithoutCounts,
	})

	for name, want := range map[string]string{"a.csv": TrialWithCounts, "nested/b.txt": TrialWithoutCounts} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s: content mismatch", name)
		}
	}
}
