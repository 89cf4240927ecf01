package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgeting/internal/core"
)

// MessageType tells consumers which payload a delivery carries.
type MessageType string

const (
	TypeScheduleRequest MessageType = "schedule.requested"
	TypeImportCompleted MessageType = "import.completed"
)

// ScheduleRequestMessage asks a worker to build the schedule of a commitment.
// The worker loads the commitment itself; only ids travel on the wire.
type ScheduleRequestMessage struct {
	Type         MessageType `json:"type"`
	OwnerID      string      `json:"owner_id"`
	CommitmentID string      `json:"commitment_id"`
	Regenerate   bool        `json:"regenerate"`
	Timestamp    time.Time   `json:"timestamp"`
}

func NewScheduleRequestMessage(owner, commitmentID string, regenerate bool) *ScheduleRequestMessage {
	return &ScheduleRequestMessage{
		Type:         TypeScheduleRequest,
		OwnerID:      owner,
		CommitmentID: commitmentID,
		Regenerate:   regenerate,
		Timestamp:    time.Now(),
	}
}

func (m *ScheduleRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ScheduleRequestMessageFromJSON(data []byte) (*ScheduleRequestMessage, error) {
	var msg ScheduleRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" || msg.CommitmentID == "" {
		return nil, fmt.Errorf("schedule request missing owner or commitment id")
	}
	return &msg, nil
}

// ImportCompletedMessage reports the outcome of an import or promotion run.
type ImportCompletedMessage struct {
	Type      MessageType `json:"type"`
	OwnerID   string      `json:"owner_id"`
	Source    string      `json:"source"`
	Created   int         `json:"created"`
	Skipped   int         `json:"skipped"`
	Months    []string    `json:"months,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewImportCompletedMessage(owner, source string, res core.ImportResult) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		Type:      TypeImportCompleted,
		OwnerID:   owner,
		Source:    source,
		Created:   res.Created,
		Skipped:   res.Skipped,
		Months:    res.Months,
		Timestamp: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Result converts the message back into an import result.
func (m *ImportCompletedMessage) Result() core.ImportResult {
	return core.ImportResult{Created: m.Created, Skipped: m.Skipped, Months: m.Months}
}

// PeekType reads only the type field of a delivery body.
func PeekType(data []byte) (MessageType, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == "" {
		return "", fmt.Errorf("message has no type")
	}
	return head.Type, nil
}
