package amqp

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current BudgetSyncMessage schema version.
// Consumers can use it to reject payloads from incompatible producers.
const MessageVersion = 1

// BudgetSyncMessage asks a worker to sync one project with its linked
// spreadsheet. It carries only the project and direction; the worker
// reads the current state from the database.
type BudgetSyncMessage struct {
	ProjectID string    `json:"project_id"`
	Operation string    `json:"operation"` // "pull" or "push"
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetSyncMessage creates a sync message for a project
func NewBudgetSyncMessage(projectID, operation string) *BudgetSyncMessage {
	return &BudgetSyncMessage{
		ProjectID: projectID,
		Operation: operation,
		Version:   MessageVersion,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func BudgetSyncMessageFromJSON(data []byte) (*BudgetSyncMessage, error) {
	var msg BudgetSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
