package loop

import "time"

// EventKind classifies a user-relevant event.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventStopRequested EventKind = "stop_requested"
	EventIteration     EventKind = "iteration"
	EventContent       EventKind = "content"
	EventCommit        EventKind = "commit"
	EventDegraded      EventKind = "degraded"
	EventFailed        EventKind = "failed"
	EventFinished      EventKind = "finished"
)

// Event is a notification for the operator.
type Event struct {
	Kind      EventKind `json:"kind"`
	Iteration int       `json:"iteration"`
	Message   string    `json:"message"`
	Outcome   string    `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives state changes and events. Calls are made from the loop
// goroutine and from Stop callers; implementations must not block.
type Observer interface {
	StateChanged(State)
	Event(Event)
}

type observers []Observer

func (o observers) StateChanged(s State) {
	for _, obs := range o {
		obs.StateChanged(s)
	}
}

func (o observers) Event(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, obs := range o {
		obs.Event(e)
	}
}
