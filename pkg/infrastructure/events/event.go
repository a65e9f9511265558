package events

import (
	"time"
)

// Event is one entry on a run's audit stream.
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
}

// EventHandler consumes published events.
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore records and replays audit events per run stream.
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
}

// BaseEvent is the concrete event carried by the in-memory store.
type BaseEvent struct {
	EventType string
	Stream    string
	EventData interface{}
	EventTime time.Time
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, streamID string, data interface{}) Event {
	return BaseEvent{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now(),
	}
}
