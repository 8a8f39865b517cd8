package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerNormalizesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf))

	logger.Info("buffer initialized", "buffer", "USD/WUSD")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "buffer initialized" {
		t.Fatalf("expected normalized message key, got %v", line)
	}
	if line["severity"] != "INFO" {
		t.Fatalf("expected upper-cased severity, got %v", line["severity"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("expected timestamp key, got %v", line)
	}
	if _, ok := line["msg"]; ok {
		t.Fatalf("expected default msg key remapped, got %v", line)
	}
	if line["buffer"] != "USD/WUSD" {
		t.Fatalf("expected attribute passthrough, got %v", line)
	}
}

func TestHandlerRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf))

	logger.Info("adapter configured", "privateKey", "0xdeadbeef", "buffer", "USD/WUSD")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["privateKey"] != RedactedValue {
		t.Fatalf("expected credential value redacted, got %v", line["privateKey"])
	}
	if line["buffer"] != "USD/WUSD" {
		t.Fatalf("expected benign attribute untouched, got %v", line["buffer"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"privateKey", "api_key", "OraclePassword", " seed "} {
		if !IsSensitiveKey(key) {
			t.Fatalf("expected %q flagged as sensitive", key)
		}
	}
	for _, key := range []string{"buffer", "owner", "amountIn"} {
		if IsSensitiveKey(key) {
			t.Fatalf("expected %q to pass through", key)
		}
	}
}

func TestHandlerSeverityLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf))

	logger.Error("settlement shortfall")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["severity"] != "ERROR" {
		t.Fatalf("expected ERROR severity, got %v", line["severity"])
	}
}
