package mylogger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(LevelInfo, &buf).Action("TransitionDispatch")

	log.Info("dispatch moved", "dispatch_id", "d-1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if line["message"] != "dispatch moved" {
		t.Fatalf("message = %v", line["message"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %s", buf.String())
	}
	if line["action"] != "TransitionDispatch" {
		t.Fatalf("action = %v", line["action"])
	}
	if line["instance_id"] == "" || line["instance_id"] == nil {
		t.Fatalf("instance_id missing: %s", buf.String())
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("dropped")
	log.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below WARN, got %s", buf.String())
	}

	log.Error("store failed", errors.New("boom"))
	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("error log without stack: %s", buf.String())
	}
}
