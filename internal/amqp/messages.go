package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType says what happened to a transaction.
type EventType string

const (
	EventUpsert EventType = "upsert"
	EventDelete EventType = "delete"
)

// TransactionEvent announces a change to one transaction. It carries identity
// only; consumers load the current row from the store.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, id, owner string, version int64) *TransactionEvent {
	return &TransactionEvent{
		Type:      typ,
		ID:        id,
		Owner:     owner,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != EventUpsert && msg.Type != EventDelete {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ID == "" {
		return nil, errors.New("event without transaction id")
	}
	return &msg, nil
}
