package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestForChatAddsChatID(t *testing.T) {
	var buf bytes.Buffer
	logger := ForChat(NewWithWriter(&buf, "debug"), 12345)
	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["chat_id"] != float64(12345) {
		t.Fatalf("expected chat_id 12345, got %v", entry["chat_id"])
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered at info level")
	}
	logger.Info("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected info line")
	}
}
