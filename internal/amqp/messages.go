package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionRecordedMessage announces a stored purchase. It only carries ids;
// consumers read current state from storage.
type TransactionRecordedMessage struct {
	TransactionID int64     `json:"transaction_id"`
	CustomerID    int64     `json:"customer_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(transactionID, customerID int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		TransactionID: transactionID,
		CustomerID:    customerID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes and validates a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.CustomerID <= 0 {
		return nil, fmt.Errorf("message has no customer_id")
	}
	return &msg, nil
}
