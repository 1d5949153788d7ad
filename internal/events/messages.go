package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionEvent is the lightweight change notification published
// after a ledger mutation. Consumers fetch the full document from the
// store; deleted ids simply resolve to not-found.
type TransactionEvent struct {
	ID            string    `json:"id"`
	Op            string    `json:"op"` // created | updated | deleted | commented
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(op, transactionID string) *TransactionEvent {
	return &TransactionEvent{
		ID:            uuid.NewString(),
		Op:            op,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
