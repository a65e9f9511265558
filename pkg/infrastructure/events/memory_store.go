package events

import (
	"sync"
)

// InMemoryEventStore keeps each run's audit stream in memory and notifies
// subscribers synchronously on append.
type InMemoryEventStore struct {
	mutex       sync.RWMutex
	streams     map[string][]Event
	subscribers []subscription
}

type subscription struct {
	eventTypes map[string]bool
	handler    EventHandler
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams: make(map[string][]Event),
	}
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

// AppendEvent records an event on a stream and delivers it to interested
// subscribers. Handler errors do not fail the append.
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	stamped := BaseEvent{
		EventType: event.Type(),
		Stream:    streamID,
		EventData: event.Data(),
		EventTime: event.Timestamp(),
	}
	s.streams[streamID] = append(s.streams[streamID], stamped)
	subscribers := append([]subscription(nil), s.subscribers...)
	s.mutex.Unlock()

	for _, sub := range subscribers {
		if sub.eventTypes[stamped.EventType] && sub.handler.CanHandle(stamped.EventType) {
			_ = sub.handler.Handle(stamped)
		}
	}
	return nil
}

// ReadEvents returns a stream's events in append order.
func (s *InMemoryEventStore) ReadEvents(streamID string) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]Event(nil), s.streams[streamID]...), nil
}

// Subscribe registers a handler for the given event types.
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	s.subscribers = append(s.subscribers, subscription{eventTypes: types, handler: handler})
	return nil
}
