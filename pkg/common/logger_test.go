package common

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/roomwatch-service/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestGetLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)
	defer SetTestLoggerNop()

	GetLoggerWith(LoggerNameRoomwatchCore, zap.String(LoggerFieldCategory, LoggerCategoryAlert)).
		Debug("below level")
	GetLoggerWith(LoggerNameRoomwatchCore, zap.String(LoggerFieldCategory, LoggerCategoryAlert)).
		Info("Alert saved", zap.String("room_id", "r1"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON log line, got: %s", buf.String())
	}
	if entry["logger"] != LoggerNameRoomwatchCore || entry["category"] != LoggerCategoryAlert || entry["room_id"] != "r1" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}
