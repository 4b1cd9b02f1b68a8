package systems

// FixedUpdater runs in the fixed-rate phase, once per fixed step.
type FixedUpdater interface {
	FixedUpdate(fixedDeltaTime float64)
}

// Updater runs once per frame, after the fixed steps of that frame.
type Updater interface {
	Update(deltaTime float64)
}

// LateUpdater runs once per frame, after every Updater.
type LateUpdater interface {
	LateUpdate(deltaTime float64)
}

// Prioritized lets a registered object choose its position within a phase. Higher runs first.
type Prioritized interface {
	Priority() Priority
}

// Priority defines execution order within a phase.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase identifies a phase of a frame.
type ExecutionPhase uint8

const (
	PhaseFixedUpdate ExecutionPhase = iota
	PhaseUpdate
	PhaseLateUpdate
	PhaseDeferred
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhaseFixedUpdate:
		return "fixed"
	case PhaseUpdate:
		return "update"
	case PhaseLateUpdate:
		return "late"
	case PhaseDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Clock exposes scene time to the objects driven by a Scheduler.
type Clock interface {
	// Now is the scene time in seconds. Inside the fixed phase it is the time of the
	// fixed step being simulated.
	Now() float64
	DeltaTime() float64
	FixedDeltaTime() float64
	Frame() uint64
	// FixedStep counts completed fixed steps.
	FixedStep() uint64
	Phase() ExecutionPhase
}

// Metrics provides runtime counters for a scheduler.
type Metrics struct {
	Frames        uint64
	FixedSteps    uint64
	DeferredRun   uint64
	Registered    int
	DroppedSteps  uint64
	PendingDefers int
}
