package transport

import "context"

// EventType discriminates the elements of a send's event stream.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one element of the ordered stream produced by Send: zero or more
// progress events with monotonically non-decreasing whole percents, then
// exactly one completed or failed event.
type Event struct {
	Type    EventType
	Percent int    // set for EventProgress
	Message string // set for EventFailed
}

func Progress(percent int) Event {
	return Event{Type: EventProgress, Percent: percent}
}

func Completed() Event {
	return Event{Type: EventCompleted}
}

func Failed(message string) Event {
	return Event{Type: EventFailed, Message: message}
}

// Transport moves the bytes behind a content locator to the remote
// destination. Send returns a channel that yields the ordered event stream
// and is closed after the terminal event. Transport failures are reported
// as failed events, never as panics or stray errors; the scheduler folds
// them into the owning record.
type Transport interface {
	Send(ctx context.Context, locator string) <-chan Event
}
