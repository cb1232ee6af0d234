package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried by LedgerEventMessage.
const (
	EventExpenseRecorded    = "expense_recorded"
	EventSettlementRecorded = "settlement_recorded"
)

// LedgerEventMessage is a lightweight notification that a group's ledger
// changed. It carries identifiers only; consumers fetch the current group
// state from storage.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	GroupName string    `json:"group_name"`
	RefID     string    `json:"ref_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event stamped with the current time.
func NewLedgerEventMessage(kind, groupName, refID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		GroupName: groupName,
		RefID:     refID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
