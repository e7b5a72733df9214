// Package events publishes notifications about files written through the
// WOPI endpoints. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventTypeFileUpdated is the type of event sent after PutFileContents.
const EventTypeFileUpdated = "wopi.file.updated"

// FileUpdated describes a blob that was overwritten.
type FileUpdated struct {
	Container string    `json:"container"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	RequestID string    `json:"request_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher sends file events to a downstream consumer.
type Publisher interface {
	PublishFileUpdated(ctx context.Context, event FileUpdated) error
	Close(ctx context.Context) error
}

// envelope is the message body written to the queue.
type envelope struct {
	Type string      `json:"type"`
	Data FileUpdated `json:"data"`
}

func encode(event FileUpdated) ([]byte, error) {
	body, err := json.Marshal(envelope{Type: EventTypeFileUpdated, Data: event})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return body, nil
}

// NopPublisher drops every event. Used when no queue is configured.
type NopPublisher struct{}

// PublishFileUpdated does nothing.
func (NopPublisher) PublishFileUpdated(ctx context.Context, event FileUpdated) error { return nil }

// Close does nothing.
func (NopPublisher) Close(ctx context.Context) error { return nil }
