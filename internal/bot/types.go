package bot

import "time"

type EventType string

const (
	EventMessage  EventType = "message"
	EventPresence EventType = "presence"
)

type (
	// Event is an inbound chat event, independent of the chat platform.
	Event struct {
		Type       EventType
		Text       string
		UserID     string
		Channel    string
		MessageRef string
		Timestamp  time.Time
		Status     string
	}

	Identity struct {
		ID   string
		Name string
	}

	Attachment struct {
		Title    string
		ImageURL string
	}
)
