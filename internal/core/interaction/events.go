package interaction

// EventType names an interaction event on the session bus.
type EventType string

const (
	EventEnter    EventType = "manipulator.enter"
	EventStay     EventType = "manipulator.stay"
	EventExit     EventType = "manipulator.exit"
	EventGrab     EventType = "manipulator.grab"
	EventHold     EventType = "manipulator.hold"
	EventRelease  EventType = "manipulator.release"
	EventTap      EventType = "manipulator.tap"
	EventLongHold EventType = "manipulator.long_hold"
)

// ManipulationEvent is the bus payload of a manipulation lifecycle event.
type ManipulationEvent struct {
	Type         EventType `json:"type"`
	Manipulation string    `json:"manipulation"`
	Manipulator  string    `json:"manipulator"`
	Manipulable  string    `json:"manipulable"`
	Target       string    `json:"target"`
	Grabbed      bool      `json:"grabbed"`
	EndedByExit  bool      `json:"ended_by_exit,omitempty"`
	Time         float64   `json:"time"`
}

// ManipulationHandler observes a manipulation lifecycle event.
type ManipulationHandler func(*Manipulation)

func (m *Manipulation) event(t EventType, now float64) ManipulationEvent {
	return ManipulationEvent{
		Type:         t,
		Manipulation: m.id.String(),
		Manipulator:  m.manipulator.Name(),
		Manipulable:  m.manipulable.Name(),
		Target:       m.manipulable.Target().Name(),
		Grabbed:      m.grabbed,
		EndedByExit:  m.endedByExit,
		Time:         now,
	}
}
