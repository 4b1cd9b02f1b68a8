package systems

import (
	"context"
	"errors"
	"sort"
)

var ErrInvalidTimestep = errors.New("fixed timestep must be positive")

const defaultMaxFixedSteps = 8

type entry struct {
	obj      any
	priority Priority
	seq      uint64
	removed  bool
}

type deferred struct {
	due uint64
	fn  func()
}

// Scheduler drives registered objects through the phases of a frame: as many fixed steps
// as the accumulated time allows, then Update, then LateUpdate, then due deferred actions.
// It is single-threaded; a Scheduler must not be shared across goroutines.
type Scheduler struct {
	fixedDt       float64
	maxFixedSteps int

	time        float64
	fixedTime   float64
	accumulator float64
	delta       float64
	frame       uint64
	fixedStep   uint64
	phase       ExecutionPhase

	entries []*entry
	seq     uint64
	defers  []deferred
	metrics Metrics
}

var _ Clock = (*Scheduler)(nil)

// NewScheduler creates a scheduler stepping its fixed phase every fixedDt seconds.
func NewScheduler(fixedDt float64) (*Scheduler, error) {
	if fixedDt <= 0 {
		return nil, ErrInvalidTimestep
	}
	return &Scheduler{fixedDt: fixedDt, maxFixedSteps: defaultMaxFixedSteps, phase: PhaseUpdate}, nil
}

// SetMaxFixedSteps caps how many fixed steps a single frame may run; surplus time is dropped.
func (s *Scheduler) SetMaxFixedSteps(n int) {
	if n > 0 {
		s.maxFixedSteps = n
	}
}

func (s *Scheduler) Now() float64 {
	if s.phase == PhaseFixedUpdate {
		return s.fixedTime
	}
	return s.time
}

func (s *Scheduler) DeltaTime() float64 {
	if s.phase == PhaseFixedUpdate {
		return s.fixedDt
	}
	return s.delta
}

func (s *Scheduler) FixedDeltaTime() float64 { return s.fixedDt }
func (s *Scheduler) Frame() uint64           { return s.frame }
func (s *Scheduler) FixedStep() uint64       { return s.fixedStep }
func (s *Scheduler) Phase() ExecutionPhase   { return s.phase }

// Register adds obj to every phase it implements and returns a function removing it again.
// Objects implementing none of FixedUpdater, Updater or LateUpdater are ignored.
func (s *Scheduler) Register(obj any) (unregister func()) {
	_, f := obj.(FixedUpdater)
	_, u := obj.(Updater)
	_, l := obj.(LateUpdater)
	if !f && !u && !l {
		return func() {}
	}

	p := PriorityNormal
	if pr, ok := obj.(Prioritized); ok {
		p = pr.Priority()
	}
	s.seq++
	e := &entry{obj: obj, priority: p, seq: s.seq}
	s.entries = append(s.entries, e)
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].priority != s.entries[j].priority {
			return s.entries[i].priority > s.entries[j].priority
		}
		return s.entries[i].seq < s.entries[j].seq
	})
	s.metrics.Registered++

	return func() {
		if e.removed {
			return
		}
		e.removed = true
		s.metrics.Registered--
		for i, x := range s.entries {
			if x == e {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
	}
}

// Defer schedules fn to run at the end of the frame that is frames frames after the
// current one. Called between frames, the frame that just finished counts as current, so
// Defer(0, fn) then runs at the end of the next frame. A deferred action runs once per
// frame at most: Defer(0, fn) from inside it also lands on the next frame.
func (s *Scheduler) Defer(frames int, fn func()) {
	if frames < 0 {
		frames = 0
	}
	s.defers = append(s.defers, deferred{due: s.frame + uint64(frames), fn: fn})
}

// Tick advances the scene by dt seconds.
func (s *Scheduler) Tick(dt float64) {
	if dt < 0 {
		dt = 0
	}
	s.frame++
	s.delta = dt
	s.time += dt
	s.accumulator += dt

	steps := 0
	for s.accumulator >= s.fixedDt-1e-9 {
		if steps == s.maxFixedSteps {
			s.metrics.DroppedSteps += uint64(s.accumulator / s.fixedDt)
			s.accumulator = 0
			break
		}
		s.accumulator -= s.fixedDt
		s.fixedTime += s.fixedDt
		s.phase = PhaseFixedUpdate
		s.each(func(obj any) {
			if f, ok := obj.(FixedUpdater); ok {
				f.FixedUpdate(s.fixedDt)
			}
		})
		s.fixedStep++
		steps++
	}

	s.phase = PhaseUpdate
	s.each(func(obj any) {
		if u, ok := obj.(Updater); ok {
			u.Update(dt)
		}
	})

	s.phase = PhaseLateUpdate
	s.each(func(obj any) {
		if l, ok := obj.(LateUpdater); ok {
			l.LateUpdate(dt)
		}
	})

	s.phase = PhaseDeferred
	s.runDeferred()
	s.phase = PhaseUpdate
	s.metrics.Frames++
	s.metrics.FixedSteps = s.fixedStep
}

// Run ticks with a constant dt until duration seconds of scene time elapsed or ctx is done.
func (s *Scheduler) Run(ctx context.Context, duration, dt float64) error {
	if dt <= 0 {
		return ErrInvalidTimestep
	}
	end := s.time + duration
	for s.time+dt <= end+1e-9 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick(dt)
	}
	return nil
}

func (s *Scheduler) GetMetrics() Metrics {
	m := s.metrics
	m.PendingDefers = len(s.defers)
	return m
}

func (s *Scheduler) each(fn func(obj any)) {
	snapshot := make([]*entry, len(s.entries))
	copy(snapshot, s.entries)
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		fn(e.obj)
	}
}

func (s *Scheduler) runDeferred() {
	due := s.defers[:0:0]
	pending := s.defers[:0:0]
	for _, d := range s.defers {
		if d.due <= s.frame {
			due = append(due, d)
		} else {
			pending = append(pending, d)
		}
	}
	s.defers = pending
	// zero-frame actions deferred from here on wait for the next frame
	for _, d := range due {
		d.fn()
		s.metrics.DeferredRun++
	}
}
