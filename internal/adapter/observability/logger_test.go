package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/verityhq/verity/internal/adapter/observability"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(orig)
		log.SetFlags(flags)
	})
	return &buf
}

func TestHumanFormatSortsFields(t *testing.T) {
	buf := captureLog(t)
	logger := observability.NewDefaultLogger(observability.LogLevelInfo, observability.LogFormatHuman)

	logger.LogInfo(context.Background(), "audit run started", map[string]interface{}{
		"workers":  4,
		"findings": 2,
	})

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "[INFO] audit run started") {
		t.Fatalf("unexpected line %q", line)
	}
	// Stable ordering regardless of map iteration.
	if !strings.Contains(line, "findings=2 workers=4") {
		t.Errorf("fields not sorted: %q", line)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := captureLog(t)
	logger := observability.NewDefaultLogger(observability.LogLevelInfo, observability.LogFormatJSON)

	logger.LogWarning(context.Background(), "report write failed", map[string]interface{}{
		"error": "disk full",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log line is not json: %v\n%s", err, buf.String())
	}
	if entry["level"] != "warning" || entry["message"] != "report write failed" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["error"] != "disk full" {
		t.Errorf("field not carried: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLog(t)
	logger := observability.NewDefaultLogger(observability.LogLevelError, observability.LogFormatHuman)

	logger.LogInfo(context.Background(), "suppressed", nil)
	logger.LogWarning(context.Background(), "suppressed too", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below error level, got %q", buf.String())
	}

	logger.LogError(context.Background(), "kept", nil)
	if !strings.Contains(buf.String(), "[ERROR] kept") {
		t.Errorf("error not logged: %q", buf.String())
	}
}
