package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeOp is the kind of write that produced a change message.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// TransactionChangeMessage announces a write to a user's transactions.
// It carries identifiers only; consumers read the record from the store.
type TransactionChangeMessage struct {
	UserID    string    `json:"user_id"`
	ID        string    `json:"id"`
	Op        ChangeOp  `json:"op"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionChangeMessage stamps a change message with the current time.
func NewTransactionChangeMessage(userID, id string, op ChangeOp, version int64) *TransactionChangeMessage {
	return &TransactionChangeMessage{
		UserID:    userID,
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangeMessageFromJSON decodes and validates a message body.
func TransactionChangeMessageFromJSON(data []byte) (*TransactionChangeMessage, error) {
	var msg TransactionChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.ID == "" {
		return nil, fmt.Errorf("change message missing user or transaction id")
	}
	switch msg.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("unknown change op %q", msg.Op)
	}
	return &msg, nil
}
