package game

import "time"

// EventType represents a game event type with type safety
type EventType string

// EventType constants for round lifecycle events
const (
	EventTypeRoundStarted    EventType = "round_started"
	EventTypeRoundStopped    EventType = "round_stopped"
	EventTypePauseToggled    EventType = "pause_toggled"
	EventTypeNumberCalled    EventType = "number_called"
	EventTypeWinnerAnnounced EventType = "winner_announced"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents any event that occurs during a round
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// RoundStartedEvent is published when the admin starts a round
type RoundStartedEvent struct {
	Settings  Settings
	timestamp time.Time
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }
func (e RoundStartedEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundStartedEvent creates a new round started event
func NewRoundStartedEvent(settings Settings, ts time.Time) RoundStartedEvent {
	return RoundStartedEvent{Settings: settings, timestamp: ts}
}

// RoundStoppedEvent is published when a round ends, either by the admin or
// by the winner quota auto-stop
type RoundStoppedEvent struct {
	Reason    string
	timestamp time.Time
}

func (e RoundStoppedEvent) EventType() EventType { return EventTypeRoundStopped }
func (e RoundStoppedEvent) Timestamp() time.Time { return e.timestamp }

// NewRoundStoppedEvent creates a new round stopped event
func NewRoundStoppedEvent(reason string, ts time.Time) RoundStoppedEvent {
	return RoundStoppedEvent{Reason: reason, timestamp: ts}
}

// PauseToggledEvent is published when the round is paused or resumed
type PauseToggledEvent struct {
	Paused    bool
	timestamp time.Time
}

func (e PauseToggledEvent) EventType() EventType { return EventTypePauseToggled }
func (e PauseToggledEvent) Timestamp() time.Time { return e.timestamp }

// NewPauseToggledEvent creates a new pause toggled event
func NewPauseToggledEvent(paused bool, ts time.Time) PauseToggledEvent {
	return PauseToggledEvent{Paused: paused, timestamp: ts}
}

// NumberCalledEvent is published for each newly drawn number
type NumberCalledEvent struct {
	Number    int
	timestamp time.Time
}

func (e NumberCalledEvent) EventType() EventType { return EventTypeNumberCalled }
func (e NumberCalledEvent) Timestamp() time.Time { return e.timestamp }

// NewNumberCalledEvent creates a new number called event
func NewNumberCalledEvent(number int, ts time.Time) NumberCalledEvent {
	return NumberCalledEvent{Number: number, timestamp: ts}
}

// WinnerAnnouncedEvent is published when a claim pays out a win condition
type WinnerAnnouncedEvent struct {
	Winner    Winner
	timestamp time.Time
}

func (e WinnerAnnouncedEvent) EventType() EventType { return EventTypeWinnerAnnounced }
func (e WinnerAnnouncedEvent) Timestamp() time.Time { return e.timestamp }

// NewWinnerAnnouncedEvent creates a new winner announced event
func NewWinnerAnnouncedEvent(winner Winner, ts time.Time) WinnerAnnouncedEvent {
	return WinnerAnnouncedEvent{Winner: winner, timestamp: ts}
}

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
