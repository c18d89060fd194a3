package amqp

import (
	"encoding/json"
	"time"
)

// ReceiptProcessMessage asks the worker to parse an uploaded receipt.
type ReceiptProcessMessage struct {
	ReceiptID string    `json:"receipt_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptProcessMessage(receiptID string, userID int64, text string) *ReceiptProcessMessage {
	return &ReceiptProcessMessage{
		ReceiptID: receiptID,
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *ReceiptProcessMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReceiptProcessMessageFromJSON(data []byte) (*ReceiptProcessMessage, error) {
	var m ReceiptProcessMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ExpenseExportMessage notifies the worker that an expense is ready to
// be exported to the spreadsheet.
type ExpenseExportMessage struct {
	ExpenseID int64     `json:"expense_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseExportMessage(expenseID, userID int64) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		ExpenseID: expenseID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var m ExpenseExportMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
