package amqp

import (
	"encoding/json"
	"time"

	"dtmoney/internal/core"
)

// TransactionCreatedMessage announces a stored transaction. It carries the
// full transaction so consumers never have to call back into the API.
type TransactionCreatedMessage struct {
	ID          int64                `json:"id"`
	Description string               `json:"description"`
	Type        core.TransactionType `json:"type"`
	Price       core.Money           `json:"price"`
	Category    string               `json:"category"`
	CreatedAt   string               `json:"createdAt"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewTransactionCreatedMessage builds the message for t, stamped now.
func NewTransactionCreatedMessage(t core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:          t.ID,
		Description: t.Description,
		Type:        t.Type,
		Price:       t.Price,
		Category:    t.Category,
		CreatedAt:   t.CreatedAt,
		Timestamp:   time.Now(),
	}
}

// Transaction returns the transaction carried by the message.
func (m *TransactionCreatedMessage) Transaction() core.Transaction {
	return core.Transaction{
		ID:          m.ID,
		Description: m.Description,
		Type:        m.Type,
		Price:       m.Price,
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
