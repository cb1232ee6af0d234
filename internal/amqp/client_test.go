package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEventMessage(t *testing.T) {
	msg := NewLedgerEventMessage(EventExpenseRecorded, "Trip", "exp-1")

	if msg.Kind != EventExpenseRecorded {
		t.Errorf("Kind = %q, want %q", msg.Kind, EventExpenseRecorded)
	}
	if msg.GroupName != "Trip" {
		t.Errorf("GroupName = %q, want %q", msg.GroupName, "Trip")
	}
	if msg.RefID != "exp-1" {
		t.Errorf("RefID = %q, want %q", msg.RefID, "exp-1")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestLedgerEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerEventMessage{
		Kind:      EventSettlementRecorded,
		GroupName: "Flat",
		RefID:     "stl-42",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerEventMessageFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %q, want %q", parsed.Kind, msg.Kind)
	}
	if parsed.GroupName != msg.GroupName {
		t.Errorf("Parsed GroupName = %q, want %q", parsed.GroupName, msg.GroupName)
	}
	if parsed.RefID != msg.RefID {
		t.Errorf("Parsed RefID = %q, want %q", parsed.RefID, msg.RefID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEventMessage_InvalidJSON(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte(`{"kind": 3}`)); err == nil {
		t.Error("LedgerEventMessageFromJSON() should fail with invalid JSON")
	}
}
