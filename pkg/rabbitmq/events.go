package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys of directory events.
const (
	EventProviderCreated = "provider.created"
	EventProviderUpdated = "provider.updated"
	EventProviderDeleted = "provider.deleted"
	EventReviewSubmitted = "review.submitted"
	EventUserDeleted     = "user.deleted"

	// BindAll matches every directory event.
	BindAll = "#"
)

// DirectoryEvent tells listeners that the provider list changed.
type DirectoryEvent struct {
	Type       string    `json:"type"`
	ProviderID string    `json:"providerId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Rating     float64   `json:"rating,omitempty"`
	At         time.Time `json:"at"`
}

// DecodeEvent parses a message body.
func DecodeEvent(body []byte) (DirectoryEvent, error) {
	var evt DirectoryEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return DirectoryEvent{}, fmt.Errorf("invalid directory event: %w", err)
	}
	if evt.Type == "" {
		return DirectoryEvent{}, fmt.Errorf("invalid directory event: missing type")
	}
	return evt, nil
}

func handleDelivery(body []byte, handler func(DirectoryEvent) error) error {
	evt, err := DecodeEvent(body)
	if err != nil {
		return err
	}
	return handler(evt)
}
