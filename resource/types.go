package resource

// Handle is an opaque reference to a state value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for state lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a state lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about state lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by state values that need teardown.
// Drop runs exactly once, when the value leaves the table.
type Dropper interface {
	Drop()
}
