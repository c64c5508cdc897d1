package queue

import "encoding/json"

const (
	// MessageVersion is the current analysis job payload version.
	MessageVersion = 1
	// TaskTypeAnalyze names analysis jobs on the asynq backend.
	TaskTypeAnalyze = "document:analyze"
)

// Message asks a worker to run analysis for one document.
type Message struct {
	DocumentID string `json:"documentId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
