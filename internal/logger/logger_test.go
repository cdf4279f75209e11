package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
)

// captureJSON swaps the package logger for one writing JSON to a buffer.
func captureJSON(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerInitialization(t *testing.T) {
	if logger.Logger == nil {
		t.Fatal("Logger should be initialized on package load")
	}
}

func TestLogExecutionEnd(t *testing.T) {
	buf := captureJSON(t, slog.LevelDebug)

	ctx := logger.ExecutionContext{RunID: "run-1", PipelineName: "dublin", DryRun: true}
	logger.LogExecutionEnd(ctx, "success", logger.Counts{Input: 10, Selected: 9, Arranged: 7, Filtered: 5}, 25*time.Millisecond)

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "execution completed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["run_id"] != "run-1" || entry["pipeline_name"] != "dublin" {
		t.Errorf("missing execution context: %v", entry)
	}
	if entry["dry_run"] != true {
		t.Errorf("dry_run = %v, want true", entry["dry_run"])
	}
	for key, want := range map[string]float64{"input_count": 10, "selected_count": 9, "arranged_count": 7, "filtered_count": 5} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestLogStageEnd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := captureJSON(t, slog.LevelInfo)
		logger.LogStageEnd(logger.ExecutionContext{RunID: "r", Stage: "arrange"}, 3, time.Millisecond, nil)

		entries := decodeLines(t, buf)
		if len(entries) != 1 || entries[0]["msg"] != "stage completed" || entries[0]["level"] != "INFO" {
			t.Fatalf("unexpected entries: %v", entries)
		}
		if entries[0]["stage"] != "arrange" || entries[0]["record_count"] != float64(3) {
			t.Errorf("unexpected attributes: %v", entries[0])
		}
	})

	t.Run("failure", func(t *testing.T) {
		buf := captureJSON(t, slog.LevelInfo)
		logger.LogStageEnd(logger.ExecutionContext{RunID: "r", Stage: "overpriced"}, 0, time.Millisecond,
			&logger.StageError{Code: "FILTER_FAILED", Message: "boom"})

		entries := decodeLines(t, buf)
		if len(entries) != 1 || entries[0]["level"] != "ERROR" {
			t.Fatalf("unexpected entries: %v", entries)
		}
		if entries[0]["error_code"] != "FILTER_FAILED" || entries[0]["error"] != "boom" {
			t.Errorf("unexpected attributes: %v", entries[0])
		}
	})
}

func TestStageStartIsDebug(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	logger.LogStageStart(logger.ExecutionContext{RunID: "r", Stage: "input"})
	if buf.Len() != 0 {
		t.Errorf("stage start should not be logged at info level, got %q", buf.String())
	}
}

func TestLogMetrics(t *testing.T) {
	buf := captureJSON(t, slog.LevelDebug)
	logger.LogMetrics(logger.ExecutionContext{RunID: "r"}, logger.ExecutionMetrics{
		TotalDuration:   10 * time.Millisecond,
		RankDuration:    2 * time.Millisecond,
		OffersPublished: 12,
	})

	entries := decodeLines(t, buf)
	if len(entries) != 1 || entries[0]["msg"] != "execution metrics" {
		t.Fatalf("unexpected entries: %v", entries)
	}
	if entries[0]["offers_published"] != float64(12) {
		t.Errorf("offers_published = %v", entries[0]["offers_published"])
	}
	if entries[0]["rank_duration"] != float64(2*time.Millisecond) {
		t.Errorf("rank_duration = %v", entries[0]["rank_duration"])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.OutputFormat
		wantErr bool
	}{
		{"", logger.FormatJSON, false},
		{"json", logger.FormatJSON, false},
		{"Human", logger.FormatHuman, false},
		{"text", logger.FormatHuman, false},
		{"xml", logger.FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := logger.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})
	l := slog.New(h).With(slog.String("run_id", "abc"))

	l.Debug("hidden")
	l.Warn("offer will be skipped", slog.Float64("rental_cost", 40), slog.Duration("took", 1500*time.Microsecond))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	for _, want := range []string{"⚠", "offer will be skipped", "run_id=abc", "rental_cost=40.00", "took=1ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("colours should be disabled")
	}
}

func TestSetLogFile(t *testing.T) {
	original := logger.Logger
	t.Cleanup(func() {
		logger.CloseLogFile()
		logger.Logger = original
	})

	path := filepath.Join(t.TempDir(), "offerline.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatHuman); err != nil {
		t.Fatalf("SetLogFile: %v", err)
	}
	logger.Info("written to file", slog.Int("offers", 3))
	logger.CloseLogFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file should contain JSON, got %q: %v", data, err)
	}
	if entry["msg"] != "written to file" || entry["offers"] != float64(3) {
		t.Errorf("unexpected entry: %v", entry)
	}
}
