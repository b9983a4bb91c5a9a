package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks the import worker to re-read the spreadsheet into the
// local mirror. It carries no payload beyond who asked and when.
type RefreshMessage struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh request with a fresh id.
func NewRefreshMessage(source string) *RefreshMessage {
	return &RefreshMessage{
		ID:        uuid.NewString(),
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message. The id must be a valid UUID.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, err
	}
	return &msg, nil
}
