package systems

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name     string
	priority Priority
	log      *[]string
}

func (r *recorder) FixedUpdate(float64) { *r.log = append(*r.log, r.name+":fixed") }
func (r *recorder) Update(float64)      { *r.log = append(*r.log, r.name+":update") }
func (r *recorder) LateUpdate(float64)  { *r.log = append(*r.log, r.name+":late") }
func (r *recorder) Priority() Priority  { return r.priority }

type fixedOnly struct{ steps int }

func (f *fixedOnly) FixedUpdate(float64) { f.steps++ }

func TestNewSchedulerRejectsNonPositiveStep(t *testing.T) {
	_, err := NewScheduler(0)
	assert.ErrorIs(t, err, ErrInvalidTimestep)
}

func TestPhaseOrderAndPriority(t *testing.T) {
	s, err := NewScheduler(0.02)
	require.NoError(t, err)

	var log []string
	s.Register(&recorder{name: "low", priority: PriorityLow, log: &log})
	s.Register(&recorder{name: "high", priority: PriorityHigh, log: &log})

	s.Tick(0.02)
	assert.Equal(t, []string{
		"high:fixed", "low:fixed",
		"high:update", "low:update",
		"high:late", "low:late",
	}, log)
}

func TestFixedStepAccumulator(t *testing.T) {
	s, _ := NewScheduler(0.02)
	f := &fixedOnly{}
	s.Register(f)

	s.Tick(0.01)
	assert.Equal(t, 0, f.steps)
	s.Tick(0.01)
	assert.Equal(t, 1, f.steps)
	s.Tick(0.05)
	assert.Equal(t, 3, f.steps)
	assert.Equal(t, uint64(3), s.FixedStep())
}

func TestMaxFixedStepsDropsSurplus(t *testing.T) {
	s, _ := NewScheduler(0.01)
	s.SetMaxFixedSteps(2)
	f := &fixedOnly{}
	s.Register(f)

	s.Tick(0.1)
	assert.Equal(t, 2, f.steps)
	assert.NotZero(t, s.GetMetrics().DroppedSteps)
}

func TestUnregisterDuringPhase(t *testing.T) {
	s, _ := NewScheduler(0.02)
	var log []string
	var unregister func()
	first := &callbackUpdater{fn: func() { unregister() }}
	s.Register(first)
	unregister = s.Register(&recorder{name: "victim", priority: PriorityLowest, log: &log})

	s.Tick(0.02)
	assert.Equal(t, []string{"victim:fixed"}, log)
	assert.Equal(t, 1, s.GetMetrics().Registered)
}

type callbackUpdater struct{ fn func() }

func (c *callbackUpdater) Update(float64) { c.fn() }

func TestDeferRunsAfterExactFrameCount(t *testing.T) {
	s, _ := NewScheduler(0.02)
	ran := uint64(0)
	s.Register(&callbackUpdater{fn: func() {
		if s.Frame() == 1 {
			s.Defer(2, func() { ran = s.Frame() })
		}
	}})

	s.Tick(0.02)
	s.Tick(0.02)
	assert.Zero(t, ran)
	s.Tick(0.02)
	assert.Equal(t, uint64(3), ran)
	assert.Zero(t, s.GetMetrics().PendingDefers)
}

func TestDeferBetweenFrames(t *testing.T) {
	s, _ := NewScheduler(0.02)
	count := 0
	s.Defer(0, func() { count++ })
	assert.Equal(t, 0, count)
	s.Tick(0.02)
	assert.Equal(t, 1, count)
	s.Tick(0.02)
	assert.Equal(t, 1, count)
}

func TestSelfReschedulingDeferRunsOncePerFrame(t *testing.T) {
	s, _ := NewScheduler(0.02)
	var frames []uint64
	var again func()
	again = func() {
		frames = append(frames, s.Frame())
		s.Defer(0, again)
	}
	s.Defer(0, again)

	s.Tick(0.02)
	s.Tick(0.02)
	s.Tick(0.02)
	assert.Equal(t, []uint64{1, 2, 3}, frames)
	assert.Equal(t, 1, s.GetMetrics().PendingDefers)
	assert.Equal(t, uint64(3), s.GetMetrics().DeferredRun)
}

func TestNowInsideFixedPhase(t *testing.T) {
	s, _ := NewScheduler(0.02)
	var fixedNow []float64
	s.Register(&fixedClock{s: s, out: &fixedNow})
	s.Tick(0.04)
	require.Len(t, fixedNow, 2)
	assert.InDelta(t, 0.02, fixedNow[0], 1e-9)
	assert.InDelta(t, 0.04, fixedNow[1], 1e-9)
	assert.InDelta(t, 0.04, s.Now(), 1e-9)
}

type fixedClock struct {
	s   *Scheduler
	out *[]float64
}

func (f *fixedClock) FixedUpdate(float64) { *f.out = append(*f.out, f.s.Now()) }

func TestRunHonoursContext(t *testing.T) {
	s, _ := NewScheduler(0.02)
	require.NoError(t, s.Run(context.Background(), 0.2, 0.02))
	assert.Equal(t, uint64(10), s.Frame())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 1, 0.02), context.Canceled)
}
